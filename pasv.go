package ftpc

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is the data channel address announced by a PASV reply.
type Endpoint struct {
	// IP is a dotted-quad IPv4 address
	IP string

	// Port is in the range 0-65535
	Port int
}

// Addr returns the endpoint in "host:port" form, ready for dialing.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// resolve replaces an unspecified address (0.0.0.0) with the host of the
// control connection. Some servers behind NAT announce it.
func (e Endpoint) resolve(controlHost string) Endpoint {
	if e.IP == "0.0.0.0" && controlHost != "" {
		e.IP = controlHost
	}
	return e
}

// ParsePASV decodes the (h1,h2,h3,h4,p1,p2) tuple of a PASV reply.
//
// Example: "227 Entering Passive Mode (192,168,1,5,19,136)."
// Returns: Endpoint{IP: "192.168.1.5", Port: 5000} (19*256 + 136)
func ParsePASV(line string) (Endpoint, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return Endpoint{}, &ProtocolError{Input: line, Reason: "no address tuple in passive reply"}
	}
	tuple := line[open+1:]
	end := strings.IndexByte(tuple, ')')
	if end < 0 {
		return Endpoint{}, &ProtocolError{Input: line, Reason: "unterminated address tuple"}
	}

	fields := strings.Split(tuple[:end], ",")
	if len(fields) != 6 {
		return Endpoint{}, &ProtocolError{
			Input:  line,
			Reason: fmt.Sprintf("address tuple has %d fields, want 6", len(fields)),
		}
	}

	var n [6]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || v < 0 || v > 255 {
			return Endpoint{}, &ProtocolError{
				Input:  line,
				Reason: fmt.Sprintf("field %d (%q) is not an octet", i+1, f),
			}
		}
		n[i] = v
	}

	return Endpoint{
		IP:   fmt.Sprintf("%d.%d.%d.%d", n[0], n[1], n[2], n[3]),
		Port: n[4]*256 + n[5],
	}, nil
}
