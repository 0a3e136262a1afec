package ftpc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gonzalop/ftpc/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Client is one FTP control session. It owns the control connection for its
// whole lifetime and at most one data connection at a time.
//
// A Client is strictly synchronous and not safe for concurrent use.
type Client struct {
	// conn is the control connection
	conn net.Conn

	// reader is a buffered reader for the control channel
	reader *bufio.Reader

	// addr is the control connection address, host is its host part,
	// used to resolve PASV replies announcing 0.0.0.0
	addr string
	host string

	timeout time.Duration
	dialer  *net.Dialer
	logger  logrus.FieldLogger

	// transcript receives every reply line, output every listing line
	transcript io.Writer
	output     io.Writer

	// fs is the local filesystem collaborator
	fs afero.Fs

	limiter    *ratelimit.Limiter
	progress   func(int64)
	keepSource bool

	// closed is set once QUIT has been attempted
	closed bool
}

// Credentials are the login parameters for Negotiate.
type Credentials struct {
	User     string
	Password string
}

// complete reports whether both a user name and a password are present.
func (cr Credentials) complete() bool {
	return cr.User != "" && cr.Password != ""
}

// Dial connects to an FTP server at the given "host:port" address and reads
// the greeting. A fatal greeting (e.g., "421 Too many users") terminates
// the session and is returned as a *ResponseError.
//
// Example:
//
//	client, err := ftpc.Dial(ctx, "ftp.example.com:21",
//	    ftpc.WithTimeout(10*time.Second),
//	    ftpc.WithTranscript(os.Stdout),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(ctx context.Context, addr string, options ...Option) (*Client, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	c := &Client{
		addr:       addr,
		host:       host,
		timeout:    30 * time.Second,
		dialer:     &net.Dialer{},
		logger:     discardLogger(),
		transcript: io.Discard,
		output:     io.Discard,
		fs:         afero.NewOsFs(),
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if c.dialer.Timeout == 0 {
		c.dialer.Timeout = c.timeout
	}

	c.logger.WithField("addr", addr).Debug("connecting to ftp server")

	c.conn, err = c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}
	c.reader = bufio.NewReader(c.conn)

	if _, err := c.readResponse("CONNECT"); err != nil {
		return nil, err
	}

	return c, nil
}

// Negotiate runs the fixed startup handshake: login, then TYPE I (binary
// representation), MODE S (stream mode) and STRU F (file structure). The
// first failure aborts the handshake; the session is terminated by then.
func (c *Client) Negotiate(creds Credentials) error {
	if err := c.Login(creds); err != nil {
		return err
	}

	params := [][2]string{
		{"TYPE", "I"},
		{"MODE", "S"},
		{"STRU", "F"},
	}
	for _, p := range params {
		if _, err := c.Cmd(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// Login authenticates with USER and PASS when both credentials are present,
// and with a bare USER otherwise. A server that still wants a password after
// a bare USER reports it on the next command.
func (c *Client) Login(creds Credentials) error {
	if !creds.complete() {
		_, err := c.Cmd("USER")
		return err
	}

	resp, err := c.Cmd("USER", creds.User)
	if err != nil {
		return err
	}

	// 230: logged in without a password
	if resp.Class() == ClassSuccess {
		return nil
	}

	_, err = c.Cmd("PASS", creds.Password)
	return err
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
