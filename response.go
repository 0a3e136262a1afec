package ftpc

import (
	"strings"
)

// Class groups reply codes by their leading digit.
type Class int

const (
	// ClassInformational is a positive preliminary reply (1xx).
	ClassInformational Class = iota + 1
	// ClassSuccess is a positive completion reply (2xx).
	ClassSuccess
	// ClassIntermediate is a positive intermediate reply (3xx).
	ClassIntermediate
	// ClassFatal covers every reply from 400 up. It aborts the session.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassInformational:
		return "informational"
	case ClassSuccess:
		return "success"
	case ClassIntermediate:
		return "intermediate"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Response is a single classified control channel reply.
type Response struct {
	// Code is the three-digit reply code (e.g., 220, 550)
	Code int

	// Message is the text following the code and its separator
	Message string

	// Line is the raw reply line without its terminator; the last line
	// of a multi-line reply
	Line string

	// Lines holds every line of the reply, in order
	Lines []string

	// continued is set while the terminating line of a multi-line reply
	// is still pending
	continued bool
}

// Class returns the reply class, determined by the leading digit of Code.
func (r *Response) Class() Class {
	switch r.Code / 100 {
	case 1:
		return ClassInformational
	case 2:
		return ClassSuccess
	case 3:
		return ClassIntermediate
	default:
		return ClassFatal
	}
}

// Fatal reports whether the reply must abort the session (code 400 or above).
func (r *Response) Fatal() bool {
	return r.Class() == ClassFatal
}

// String returns the raw reply line.
func (r *Response) String() string {
	return r.Line
}

// ParseResponse classifies one reply line.
//
// Format: "227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)"
//
// The first three characters must be digits forming a code of at least 100;
// the fourth, when present, must be a space or a hyphen. A hyphen opens a
// multi-line reply: the Client keeps reading until the line that repeats
// the code followed by a space.
func ParseResponse(line string) (*Response, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 3 {
		return nil, &ProtocolError{Input: line, Reason: "reply shorter than a reply code"}
	}

	code := 0
	for i := 0; i < 3; i++ {
		d := line[i]
		if d < '0' || d > '9' {
			return nil, &ProtocolError{Input: line, Reason: "reply code is not numeric"}
		}
		code = code*10 + int(d-'0')
	}
	if code < 100 {
		return nil, &ProtocolError{Input: line, Reason: "reply code below 100"}
	}

	resp := &Response{Code: code, Line: line, Lines: []string{line}}
	if len(line) > 3 {
		if line[3] != ' ' && line[3] != '-' {
			return nil, &ProtocolError{Input: line, Reason: "missing separator after reply code"}
		}
		resp.Message = line[4:]
		resp.continued = line[3] == '-'
	}

	return resp, nil
}
