package ftpc

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gonzalop/ftpc/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// transfer runs one data channel command:
//
//	PASV, connect, "<command> <path>", stream, close data, completion reply
//
// The data connection is closed on every path before transfer returns, and
// before the completion reply is read. A streaming failure terminates the
// session.
func (c *Client) transfer(ctx context.Context, command, path string, stream func(rw io.ReadWriter) error) error {
	line := strings.TrimSpace(command + " " + path)
	if err := checkLine(line); err != nil {
		return err
	}

	dc, err := c.openDataConn(ctx)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = dc.Close() })
	defer stop()

	if err := c.send(line); err != nil {
		_ = dc.Close()
		return err
	}
	resp, err := c.readResponse(line)
	if err != nil {
		_ = dc.Close()
		return err
	}

	streamErr := stream(dc)
	closeErr := dc.Close()

	c.logger.WithFields(logrus.Fields{
		"cmd":   command,
		"bytes": dc.total,
	}).Debug("data connection closed")

	if streamErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			streamErr = ctxErr
		}
		c.terminate()
		return fmt.Errorf("%s: %w", line, streamErr)
	}
	if closeErr != nil {
		c.logger.WithError(closeErr).Debug("closing data connection")
	}

	// A 1xx reply leaves the completion reply pending; anything else means
	// the server already considers the transfer finished.
	if resp.Class() == ClassInformational {
		if _, err := c.readResponse(line); err != nil {
			return err
		}
	}
	return nil
}

// Upload stores the local file at localPath as remotePath (STOR). The local
// file is read completely before the data connection is opened, so a
// missing or unreadable file never leaves an empty remote file behind.
// It returns the number of bytes sent.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	data, err := afero.ReadFile(c.fs, localPath)
	if err != nil {
		return 0, &LocalIOError{Op: "read", Path: localPath, Err: err}
	}

	err = c.transfer(ctx, "STOR", remotePath, func(rw io.ReadWriter) error {
		_, err := ratelimit.NewWriter(ctx, rw, c.limiter).Write(data)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Download retrieves remotePath (RETR) into the local file at localPath.
// The local file is only written once the server has confirmed the
// transfer. It returns the number of bytes received.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) (int64, error) {
	var data []byte
	err := c.transfer(ctx, "RETR", remotePath, func(rw io.ReadWriter) error {
		var err error
		data, err = io.ReadAll(ratelimit.NewReader(ctx, rw, c.limiter))
		return err
	})
	if err != nil {
		return 0, err
	}

	if err := afero.WriteFile(c.fs, localPath, data, 0o644); err != nil {
		return 0, &LocalIOError{Op: "write", Path: localPath, Err: err}
	}
	return int64(len(data)), nil
}
