package main

import (
	"bytes"
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptServer answers each command with a canned reply and records what
// it received. It has no data channel.
type scriptServer struct {
	addr    string
	replies map[string]string

	mu       sync.Mutex
	received []string
}

func newScriptServer(t *testing.T, replies map[string]string) *scriptServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &scriptServer{addr: l.Addr().String(), replies: map[string]string{
		"USER": "331 Please specify the password.",
		"PASS": "230 Login successful.",
		"TYPE": "200 Switching to Binary mode.",
		"MODE": "200 Mode set to S.",
		"STRU": "200 Structure set to F.",
		"MKD":  "257 created",
		"QUIT": "221 Goodbye.",
	}}
	for k, v := range replies {
		s.replies[k] = v
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := l.Accept()
		if err != nil {
			return
		}
		s.serve(conn)
	}()
	t.Cleanup(func() {
		l.Close()
		wg.Wait()
	})
	return s
}

func (s *scriptServer) serve(conn net.Conn) {
	tc := textproto.NewConn(conn)
	defer tc.Close()

	_ = tc.PrintfLine("220 script ready")
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		line, err := tc.ReadLine()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		cmd, _, _ := strings.Cut(line, " ")
		reply, ok := s.replies[strings.ToUpper(cmd)]
		if !ok {
			reply = "502 Command not implemented."
		}
		_ = tc.PrintfLine("%s", reply)
		if strings.EqualFold(cmd, "QUIT") {
			return
		}
	}
}

func (s *scriptServer) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func runApp(t *testing.T, fs afero.Fs, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", "/nonexistent-home")

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr, fs)
	code := a.run(context.Background(), append([]string{"--timeout", "2s"}, args...))
	return code, stdout.String(), stderr.String()
}

func TestRun_MakeDir(t *testing.T) {
	s := newScriptServer(t, nil)

	code, stdout, _ := runApp(t, afero.NewMemMapFs(), "mkdir", "ftp://alice:secret@"+s.addr+"/pub/new")

	assert.Equal(t, exitOK, code)
	assert.Equal(t, []string{
		"USER alice", "PASS secret", "TYPE I", "MODE S", "STRU F", "MKD /pub/new", "QUIT",
	}, s.lines())
	assert.Equal(t, strings.Join([]string{
		"220 script ready",
		"331 Please specify the password.",
		"230 Login successful.",
		"200 Switching to Binary mode.",
		"200 Mode set to S.",
		"200 Structure set to F.",
		"257 created",
		"221 Goodbye.",
	}, "\n")+"\n", stdout)
}

func TestRun_LoginIncorrect(t *testing.T) {
	s := newScriptServer(t, map[string]string{"PASS": "530 Login incorrect."})

	code, stdout, stderr := runApp(t, afero.NewMemMapFs(), "rmdir", "ftp://alice:wrong@"+s.addr+"/old")

	assert.Equal(t, exitFailure, code)
	assert.Equal(t, []string{"USER alice", "PASS wrong", "QUIT"}, s.lines())
	assert.Contains(t, stdout, "530 Login incorrect.\n")
	assert.Contains(t, stderr, "530")
	assert.NotContains(t, stderr, "wrong")
}

func TestRun_MissingLocalFile(t *testing.T) {
	s := newScriptServer(t, nil)

	code, _, stderr := runApp(t, afero.NewMemMapFs(), "cp", "missing.txt", "ftp://"+s.addr+"/missing.txt")

	assert.Equal(t, exitLocalIO, code)
	assert.Contains(t, stderr, "missing.txt")
	assert.Equal(t, []string{"USER", "TYPE I", "MODE S", "STRU F", "QUIT"}, s.lines())
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"chmod", "ftp://h/x"}},
		{"unknown flag", []string{"--bogus", "ls", "ftp://h/x"}},
		{"both local", []string{"mv", "a", "b"}},
		{"verbose and quiet", []string{"-v", "-q", "ls", "ftp://h/x"}},
		{"bad rate", []string{"--limit-rate", "fast", "ls", "ftp://h/x"}},
		{"missing config file", []string{"--config", "/nope.yaml", "ls", "ftp://h/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runApp(t, afero.NewMemMapFs(), tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "ftpc --help")
		})
	}
}

func TestRun_LineBreakInURL(t *testing.T) {
	s := newScriptServer(t, nil)

	code, stdout, _ := runApp(t, afero.NewMemMapFs(), "mkdir", "ftp://"+s.addr+"/new%0D%0ADELE%20/victim")

	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout)
	assert.Empty(t, s.lines())
}

func TestRun_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	code, _, _ := runApp(t, afero.NewMemMapFs(), "ls", "ftp://"+addr+"/")
	assert.Equal(t, exitFailure, code)
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	p := &progressReporter{w: &buf, interval: time.Hour}

	p.report(10)
	p.report(2048)
	p.finish()

	assert.Equal(t, "\r10 B transferred\r2.0 kB transferred\n", buf.String())
}
