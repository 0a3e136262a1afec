package ftpc

import (
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// handlerFunc scripts the reply to one command. It may use sess to accept
// the passive data connection.
type handlerFunc func(s *fakeServer, sess *fakeSession, args string)

// fakeServer is a scripted in-process FTP server. Files live in memory;
// every command line received is recorded in order.
type fakeServer struct {
	t        *testing.T
	listener net.Listener
	addr     string

	// banner is the greeting sent to each new connection
	banner string

	// handlers override the default behaviour per command (upper case)
	handlers map[string]handlerFunc

	mu       sync.Mutex
	commands []string
	files    map[string][]byte
	dirs     map[string]bool
	pasvs    int

	wg sync.WaitGroup
}

// fakeSession is the per-connection state.
type fakeSession struct {
	ctrl *textproto.Conn
	pasv net.Listener
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{
		t:        t,
		listener: l,
		addr:     l.Addr().String(),
		banner:   "220 fake ftp ready",
		handlers: make(map[string]handlerFunc),
		files:    make(map[string][]byte),
		dirs:     map[string]bool{"/": true},
	}
	t.Cleanup(s.stop)
	return s
}

func (s *fakeServer) start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serve(conn)
			}()
		}
	}()
}

func (s *fakeServer) stop() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *fakeServer) serve(conn net.Conn) {
	sess := &fakeSession{ctrl: textproto.NewConn(conn)}
	defer func() {
		if sess.pasv != nil {
			sess.pasv.Close()
		}
		sess.ctrl.Close()
	}()

	_ = sess.ctrl.PrintfLine("%s", s.banner)
	if !strings.HasPrefix(s.banner, "2") {
		// A refusing server still answers QUIT.
		if line, err := sess.ctrl.ReadLine(); err == nil {
			s.record(line)
			_ = sess.ctrl.PrintfLine("221 Goodbye.")
		}
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		line, err := sess.ctrl.ReadLine()
		if err != nil {
			return
		}
		s.record(line)

		cmd, args, _ := strings.Cut(line, " ")
		cmd = strings.ToUpper(cmd)

		if h, ok := s.handlers[cmd]; ok {
			h(s, sess, args)
		} else {
			s.defaultHandler(sess, cmd, args)
		}
		if cmd == "QUIT" {
			return
		}
	}
}

func (s *fakeServer) defaultHandler(sess *fakeSession, cmd, args string) {
	c := sess.ctrl
	switch cmd {
	case "USER":
		if args == "" {
			_ = c.PrintfLine("230 Anonymous user logged in.")
		} else {
			_ = c.PrintfLine("331 Please specify the password.")
		}
	case "PASS":
		_ = c.PrintfLine("230 Login successful.")
	case "TYPE":
		_ = c.PrintfLine("200 Switching to Binary mode.")
	case "MODE":
		_ = c.PrintfLine("200 Mode set to S.")
	case "STRU":
		_ = c.PrintfLine("200 Structure set to F.")
	case "PASV":
		s.handlePASV(sess)
	case "LIST":
		s.handleLIST(sess, args)
	case "STOR":
		s.handleSTOR(sess, args)
	case "RETR":
		s.handleRETR(sess, args)
	case "DELE":
		if s.remove(args) {
			_ = c.PrintfLine("250 Delete operation successful.")
		} else {
			_ = c.PrintfLine("550 Delete operation failed.")
		}
	case "MKD":
		s.mu.Lock()
		s.dirs[args] = true
		s.mu.Unlock()
		_ = c.PrintfLine("257 %q created", args)
	case "RMD":
		s.mu.Lock()
		ok := s.dirs[args]
		delete(s.dirs, args)
		s.mu.Unlock()
		if ok {
			_ = c.PrintfLine("250 Remove directory operation successful.")
		} else {
			_ = c.PrintfLine("550 Remove directory operation failed.")
		}
	case "QUIT":
		_ = c.PrintfLine("221 Goodbye.")
	default:
		_ = c.PrintfLine("502 Command not implemented.")
	}
}

func (s *fakeServer) handlePASV(sess *fakeSession) {
	if sess.pasv != nil {
		sess.pasv.Close()
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = sess.ctrl.PrintfLine("425 Cannot open passive connection.")
		return
	}
	sess.pasv = l

	s.mu.Lock()
	s.pasvs++
	s.mu.Unlock()

	port := l.Addr().(*net.TCPAddr).Port
	_ = sess.ctrl.PrintfLine("227 Entering Passive Mode (127,0,0,1,%d,%d).", port/256, port%256)
}

// accept returns the pending passive data connection.
func (sess *fakeSession) accept() (net.Conn, error) {
	if sess.pasv == nil {
		return nil, fmt.Errorf("no PASV issued")
	}
	if tl, ok := sess.pasv.(*net.TCPListener); ok {
		_ = tl.SetDeadline(time.Now().Add(5 * time.Second))
	}
	conn, err := sess.pasv.Accept()
	sess.pasv.Close()
	sess.pasv = nil
	return conn, err
}

func (s *fakeServer) handleLIST(sess *fakeSession, dir string) {
	_ = sess.ctrl.PrintfLine("150 Here comes the directory listing.")
	conn, err := sess.accept()
	if err != nil {
		_ = sess.ctrl.PrintfLine("425 Failed to establish connection.")
		return
	}
	for _, name := range s.listDir(dir) {
		fmt.Fprintf(conn, "-rw-r--r--    1 ftp      ftp            0 Jan 01 00:00 %s\r\n", name)
	}
	conn.Close()
	_ = sess.ctrl.PrintfLine("226 Directory send OK.")
}

func (s *fakeServer) handleSTOR(sess *fakeSession, name string) {
	_ = sess.ctrl.PrintfLine("150 Ok to send data.")
	conn, err := sess.accept()
	if err != nil {
		_ = sess.ctrl.PrintfLine("425 Failed to establish connection.")
		return
	}
	data, err := io.ReadAll(conn)
	conn.Close()
	if err != nil {
		_ = sess.ctrl.PrintfLine("426 Connection closed; transfer aborted.")
		return
	}
	s.put(name, data)
	_ = sess.ctrl.PrintfLine("226 Transfer complete.")
}

func (s *fakeServer) handleRETR(sess *fakeSession, name string) {
	data, ok := s.get(name)
	if !ok {
		_ = sess.ctrl.PrintfLine("550 Failed to open file.")
		return
	}
	_ = sess.ctrl.PrintfLine("150 Opening BINARY mode data connection for %s (%d bytes).", name, len(data))
	conn, err := sess.accept()
	if err != nil {
		_ = sess.ctrl.PrintfLine("425 Failed to establish connection.")
		return
	}
	_, _ = conn.Write(data)
	conn.Close()
	_ = sess.ctrl.PrintfLine("226 Transfer complete.")
}

func (s *fakeServer) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, line)
}

// received returns the command lines received so far.
func (s *fakeServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// verbs returns the command names received so far.
func (s *fakeServer) verbs() []string {
	var out []string
	for _, line := range s.received() {
		cmd, _, _ := strings.Cut(line, " ")
		out = append(out, strings.ToUpper(cmd))
	}
	return out
}

func (s *fakeServer) pasvCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pasvs
}

func (s *fakeServer) put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
}

func (s *fakeServer) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

func (s *fakeServer) remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	delete(s.files, name)
	return ok
}

func (s *fakeServer) listDir(dir string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.files {
		if path.Dir(name) == path.Clean(dir) {
			names = append(names, path.Base(name))
		}
	}
	sort.Strings(names)
	return names
}

// reply returns a handler answering with a fixed line.
func reply(line string) handlerFunc {
	return func(_ *fakeServer, sess *fakeSession, _ string) {
		_ = sess.ctrl.PrintfLine("%s", line)
	}
}
