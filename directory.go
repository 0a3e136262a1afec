package ftpc

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/gonzalop/ftpc/internal/ratelimit"
)

// List sends LIST for remotePath and returns the listing lines as the server
// formatted them. Each line is also written to the configured output.
// An empty remotePath lists the current directory.
//
// Example:
//
//	lines, err := client.List(ctx, "/pub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, line := range lines {
//	    fmt.Println(line)
//	}
func (c *Client) List(ctx context.Context, remotePath string) ([]string, error) {
	var lines []string
	err := c.transfer(ctx, "LIST", remotePath, func(rw io.ReadWriter) error {
		scanner := bufio.NewScanner(ratelimit.NewReader(ctx, rw, c.limiter))
		for scanner.Scan() {
			line := scanner.Text()
			lines = append(lines, line)
			fmt.Fprintln(c.output, line)
		}
		return scanner.Err()
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// MakeDir creates a remote directory (MKD).
func (c *Client) MakeDir(path string) error {
	_, err := c.Cmd("MKD", path)
	return err
}

// RemoveDir removes a remote directory (RMD).
func (c *Client) RemoveDir(path string) error {
	_, err := c.Cmd("RMD", path)
	return err
}

// Delete removes a remote file (DELE).
func (c *Client) Delete(path string) error {
	_, err := c.Cmd("DELE", path)
	return err
}
