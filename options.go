package ftpc

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gonzalop/ftpc/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithTimeout sets the timeout for dialing and for every read or write on
// both the control and the data channel. Zero disables deadlines, in which
// case a silent server blocks the session indefinitely.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("negative timeout %v", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

// WithLogger enables debug logging. Every command and reply is logged at
// debug level with the "cmd", "code" and "message" fields; passwords are
// redacted.
//
// Example:
//
//	logger := logrus.New()
//	logger.SetLevel(logrus.DebugLevel)
//	client, _ := ftpc.Dial(ctx, "ftp.example.com:21", ftpc.WithLogger(logger))
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		c.logger = logger
		return nil
	}
}

// WithTranscript echoes every reply line received on the control channel to
// w, so the last line written before a failure is the server's diagnostic.
func WithTranscript(w io.Writer) Option {
	return func(c *Client) error {
		c.transcript = w
		return nil
	}
}

// WithOutput sets where directory listing lines are written.
func WithOutput(w io.Writer) Option {
	return func(c *Client) error {
		c.output = w
		return nil
	}
}

// WithFs sets the filesystem local paths are resolved against. The default
// is the host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) error {
		c.fs = fs
		return nil
	}
}

// WithDialer sets a custom net.Dialer for both the control and the data
// channel.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		c.dialer = dialer
		return nil
	}
}

// WithBandwidthLimit caps data channel throughput at bytesPerSecond.
// Zero or a negative value means unlimited.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *Client) error {
		c.limiter = ratelimit.New(bytesPerSecond)
		return nil
	}
}

// WithProgress registers a callback invoked with the cumulative number of
// bytes moved over the data channel of the current operation.
func WithProgress(fn func(bytesTransferred int64)) Option {
	return func(c *Client) error {
		c.progress = fn
		return nil
	}
}

// WithKeepSource makes a local-to-remote move leave the local file in place,
// so that it behaves like a copy. Remote-to-local moves still delete the
// remote file.
func WithKeepSource() Option {
	return func(c *Client) error {
		c.keepSource = true
		return nil
	}
}
