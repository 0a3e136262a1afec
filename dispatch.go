package ftpc

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Execute runs a single operation and returns the number of bytes moved over
// the data channel (zero for control-only verbs and listings).
//
// mkdir, rmdir and rm send one control command and never open a data
// connection. ls, cp and mv open a passive data connection that is closed
// before Execute returns, on success and failure alike.
//
// A move deletes its source once the transfer succeeded: the remote file
// (DELE) after a download, the local file after an upload unless the client
// was created WithKeepSource.
func (c *Client) Execute(ctx context.Context, op Operation) (int64, error) {
	if err := op.Validate(); err != nil {
		return 0, err
	}

	c.logger.WithFields(logrus.Fields{
		"verb":   op.Verb.String(),
		"remote": op.RemotePath,
		"local":  op.LocalPath,
	}).Debug("executing operation")

	if command, ok := op.Verb.controlCommand(); ok {
		_, err := c.Cmd(command, op.RemotePath)
		return 0, err
	}

	switch op.Verb {
	case VerbList:
		_, err := c.List(ctx, op.RemotePath)
		return 0, err
	case VerbCopy, VerbMove:
		return c.copy(ctx, op)
	}
	return 0, fmt.Errorf("unsupported verb %s", op.Verb)
}

func (c *Client) copy(ctx context.Context, op Operation) (int64, error) {
	move := op.Verb == VerbMove

	if op.Direction == Upload {
		n, err := c.Upload(ctx, op.LocalPath, op.RemotePath)
		if err != nil {
			return n, err
		}
		if move && !c.keepSource {
			if err := c.fs.Remove(op.LocalPath); err != nil {
				return n, &LocalIOError{Op: "remove", Path: op.LocalPath, Err: err}
			}
		}
		return n, nil
	}

	n, err := c.Download(ctx, op.RemotePath, op.LocalPath)
	if err != nil {
		return n, err
	}
	if move {
		if err := c.Delete(op.RemotePath); err != nil {
			return n, err
		}
	}
	return n, nil
}
