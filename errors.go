package ftpc

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by commands issued after the session was terminated.
var ErrClosed = errors.New("ftp: session closed")

// ProtocolError reports a control channel line that could not be decoded
// or encoded: a reply without a leading three-digit code, a PASV reply
// without a usable (h1,h2,h3,h4,p1,p2) tuple, or a command containing a
// line break.
type ProtocolError struct {
	// Input is the offending line as received (without its terminator).
	Input string

	// Reason describes what was wrong with Input.
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftp: protocol error: %s: %q", e.Reason, e.Input)
}

// ResponseError is a fatal (4xx, 5xx or 6xx) reply to a command. The session
// has already been terminated when a ResponseError is returned.
type ResponseError struct {
	// Command is the command line that was sent (e.g., "STOR /pub/file.txt").
	// Passwords are redacted.
	Command string

	// Response is the classified reply.
	Response *Response
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %d %s", e.Command, e.Response.Code, e.Response.Message)
}

// Code returns the numeric reply code.
func (e *ResponseError) Code() int {
	return e.Response.Code
}

// IsTemporary returns true for transient negative completion replies (4xx).
func (e *ResponseError) IsTemporary() bool {
	return e.Response.Code >= 400 && e.Response.Code < 500
}

// IsPermanent returns true for permanent negative completion replies (5xx).
func (e *ResponseError) IsPermanent() bool {
	return e.Response.Code >= 500 && e.Response.Code < 600
}

// ConnectionError wraps a socket failure on either the control or the data
// channel.
type ConnectionError struct {
	// Op is the failed operation: "dial", "read", "write", "dial data",
	// "read data" or "write data".
	Op string

	// Addr is the remote address involved.
	Addr string

	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ftp: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// LocalIOError wraps a failure of the local filesystem.
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LocalIOError) Error() string {
	return fmt.Sprintf("local %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error {
	return e.Err
}
