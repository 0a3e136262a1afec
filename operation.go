package ftpc

import (
	"fmt"
)

// Verb names one of the operations a session can execute.
type Verb int

const (
	VerbList Verb = iota + 1
	VerbCopy
	VerbMove
	VerbDelete
	VerbMakeDir
	VerbRemoveDir
)

var verbNames = map[Verb]string{
	VerbList:      "ls",
	VerbCopy:      "cp",
	VerbMove:      "mv",
	VerbDelete:    "rm",
	VerbMakeDir:   "mkdir",
	VerbRemoveDir: "rmdir",
}

// ParseVerb maps a command line verb (ls, cp, mv, rm, mkdir, rmdir) to a Verb.
func ParseVerb(s string) (Verb, error) {
	for v, name := range verbNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verb %q", s)
}

// String returns the command line spelling of the verb.
func (v Verb) String() string {
	if name, ok := verbNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verb(%d)", int(v))
}

// NeedsDataChannel reports whether the verb opens a passive data connection.
func (v Verb) NeedsDataChannel() bool {
	return v == VerbList || v == VerbCopy || v == VerbMove
}

// controlCommand returns the single control command of a control-only verb.
func (v Verb) controlCommand() (string, bool) {
	switch v {
	case VerbMakeDir:
		return "MKD", true
	case VerbRemoveDir:
		return "RMD", true
	case VerbDelete:
		return "DELE", true
	}
	return "", false
}

// Direction is the direction of a copy or move.
type Direction int

const (
	// Download copies a remote file to the local filesystem.
	Download Direction = iota + 1
	// Upload copies a local file to the server.
	Upload
)

func (d Direction) String() string {
	switch d {
	case Download:
		return "download"
	case Upload:
		return "upload"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Operation is one request for a session to execute.
type Operation struct {
	Verb       Verb
	RemotePath string

	// LocalPath and Direction are only used by VerbCopy and VerbMove.
	LocalPath string
	Direction Direction
}

// Validate checks that the operation carries the fields its verb needs.
func (op Operation) Validate() error {
	if _, ok := verbNames[op.Verb]; !ok {
		return fmt.Errorf("invalid verb %d", int(op.Verb))
	}
	if op.RemotePath == "" && op.Verb != VerbList {
		return fmt.Errorf("%s: remote path required", op.Verb)
	}
	if op.Verb == VerbCopy || op.Verb == VerbMove {
		if op.LocalPath == "" {
			return fmt.Errorf("%s: local path required", op.Verb)
		}
		if op.Direction != Download && op.Direction != Upload {
			return fmt.Errorf("%s: transfer direction required", op.Verb)
		}
	}
	return nil
}
