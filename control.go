package ftpc

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Cmd sends one command and reads its reply. Exactly one command is in
// flight at a time: the reply is read and classified before Cmd returns.
//
// A fatal reply (400 and above) terminates the session and is returned as a
// *ResponseError together with the Response. Any other failure also
// terminates the session.
//
// Example:
//
//	resp, err := client.Cmd("MKD", "/pub/new")
func (c *Client) Cmd(command string, args ...string) (*Response, error) {
	line := command
	if len(args) > 0 {
		line = fmt.Sprintf("%s %s", command, strings.Join(args, " "))
	}

	if err := c.send(line); err != nil {
		return nil, err
	}
	return c.readResponse(redact(line))
}

// send writes one command line followed by CRLF.
func (c *Client) send(line string) error {
	if c.closed {
		return ErrClosed
	}
	if err := checkLine(line); err != nil {
		return err
	}
	if err := c.writeLine(line); err != nil {
		c.terminate()
		return err
	}
	return nil
}

// readResponse reads the next reply. A fatal reply runs the termination
// sequence before returning, so every command round trip enforces the
// abort rule, not just the top level.
func (c *Client) readResponse(command string) (*Response, error) {
	if c.closed {
		return nil, ErrClosed
	}

	resp, err := c.readLine()
	if err != nil {
		c.terminate()
		return nil, err
	}

	if resp.Fatal() {
		c.logger.WithField("code", resp.Code).Debug("fatal reply, terminating session")
		c.terminate()
		return resp, &ResponseError{Command: command, Response: resp}
	}

	return resp, nil
}

func (c *Client) writeLine(line string) error {
	c.logger.WithField("cmd", redact(line)).Debug("ftp command")

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
		}
	}

	if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
		return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}
	return nil
}

// readLine reads one complete reply, echoing every line to the transcript.
// A multi-line reply ("220-..." up to "220 ...") is returned as one Response.
func (c *Client) readLine() (*Response, error) {
	line, err := c.readRawLine()
	if err != nil {
		return nil, err
	}

	resp, err := ParseResponse(line)
	if err != nil {
		return nil, err
	}
	if resp.continued {
		if err := c.readContinuation(resp); err != nil {
			return nil, err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"code":    resp.Code,
		"message": resp.Message,
	}).Debug("ftp response")

	return resp, nil
}

// readContinuation reads the remaining lines of a multi-line reply. Lines
// starting with a space are text; every other line must carry the reply
// code, and the one with a space after the code ends the reply.
func (c *Client) readContinuation(resp *Response) error {
	code := resp.Line[:3]
	messages := []string{resp.Message}

	for {
		line, err := c.readRawLine()
		if err != nil {
			return err
		}
		resp.Lines = append(resp.Lines, line)

		if strings.HasPrefix(line, " ") {
			messages = append(messages, strings.TrimSpace(line))
			continue
		}
		if line == code {
			break
		}
		if len(line) < 4 || line[:3] != code || (line[3] != ' ' && line[3] != '-') {
			return &ProtocolError{Input: line, Reason: "malformed line in multi-line reply " + code}
		}

		messages = append(messages, line[4:])
		if line[3] == ' ' {
			break
		}
	}

	resp.Line = resp.Lines[len(resp.Lines)-1]
	resp.Message = strings.Join(messages, "\n")
	resp.continued = false
	return nil
}

// readRawLine reads one line, echoes it to the transcript and returns it
// without its terminator.
func (c *Client) readRawLine() (string, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", &ConnectionError{Op: "read", Addr: c.addr, Err: err}
		}
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if line != "" {
			fmt.Fprintln(c.transcript, strings.TrimRight(line, "\r\n"))
		}
		return "", &ConnectionError{Op: "read", Addr: c.addr, Err: err}
	}

	line = strings.TrimRight(line, "\r\n")
	fmt.Fprintln(c.transcript, line)
	return line, nil
}

// Quit ends the session: it sends QUIT, reads the reply without applying
// the abort rule a second time, and closes the control connection. Quit on
// an already terminated session is a no-op returning nil.
func (c *Client) Quit() error {
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.writeLine("QUIT")
	if err == nil {
		_, err = c.readLine()
	}

	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// terminate is the best-effort variant of Quit used on abort paths; the
// primary failure has already been reported, so its error is dropped.
func (c *Client) terminate() {
	_ = c.Quit()
}

// Closed reports whether the session has been terminated.
func (c *Client) Closed() bool {
	return c.closed
}

// checkLine rejects a command line that would put more than one command on
// the wire. Nothing has been sent when it fails, so the session stays usable.
func checkLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return &ProtocolError{Input: redact(line), Reason: "line break in command"}
	}
	return nil
}

// redact hides the argument of PASS.
func redact(line string) string {
	if len(line) > 5 && strings.EqualFold(line[:5], "PASS ") {
		return line[:5] + "****"
	}
	return line
}
