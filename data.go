package ftpc

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// enterPassiveMode sends PASV and returns the raw reply for the endpoint
// parser.
func (c *Client) enterPassiveMode() (string, error) {
	resp, err := c.Cmd("PASV")
	if err != nil {
		return "", err
	}
	return resp.Line, nil
}

// openDataConn requests passive mode and connects to the endpoint the server
// announced. Failures terminate the session.
func (c *Client) openDataConn(ctx context.Context) (*dataConn, error) {
	reply, err := c.enterPassiveMode()
	if err != nil {
		return nil, err
	}

	ep, err := ParsePASV(reply)
	if err != nil {
		c.terminate()
		return nil, err
	}
	addr := ep.resolve(c.host).Addr()

	c.logger.WithField("addr", addr).Debug("opening data connection")

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.terminate()
		return nil, &ConnectionError{Op: "dial data", Addr: addr, Err: err}
	}

	return &dataConn{
		Conn:     conn,
		addr:     addr,
		timeout:  c.timeout,
		progress: c.progress,
	}, nil
}

// dataConn wraps the data socket. It refreshes the deadline before every
// operation, counts bytes for progress reporting and reports socket failures
// as *ConnectionError.
type dataConn struct {
	net.Conn
	addr     string
	timeout  time.Duration
	progress func(int64)
	total    int64
}

func (d *dataConn) Read(b []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.Conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, &ConnectionError{Op: "read data", Addr: d.addr, Err: err}
		}
	}
	n, err := d.Conn.Read(b)
	d.count(n)
	if err != nil && !errors.Is(err, io.EOF) {
		err = &ConnectionError{Op: "read data", Addr: d.addr, Err: err}
	}
	return n, err
}

func (d *dataConn) Write(b []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.Conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, &ConnectionError{Op: "write data", Addr: d.addr, Err: err}
		}
	}
	n, err := d.Conn.Write(b)
	d.count(n)
	if err != nil {
		err = &ConnectionError{Op: "write data", Addr: d.addr, Err: err}
	}
	return n, err
}

func (d *dataConn) count(n int) {
	if n <= 0 {
		return
	}
	d.total += int64(n)
	if d.progress != nil {
		d.progress(d.total)
	}
}
