package main

import (
	"errors"
	"fmt"

	"github.com/gonzalop/ftpc"
)

// usageError marks errors caused by the command line rather than by the
// server or the local filesystem.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func isUsageError(err error) bool {
	var ue usageError
	return errors.As(err, &ue)
}

// resolve turns the operands of verb into the server to contact and the
// operation to run there.
func resolve(verb ftpc.Verb, args []string) (*ftpc.Remote, ftpc.Operation, error) {
	if !verb.NeedsDataChannel() || verb == ftpc.VerbList {
		return resolveSingle(verb, args)
	}
	return resolveTransfer(verb, args)
}

func resolveSingle(verb ftpc.Verb, args []string) (*ftpc.Remote, ftpc.Operation, error) {
	if len(args) != 1 {
		return nil, ftpc.Operation{}, usagef("%s takes exactly one argument, got %d", verb, len(args))
	}
	if !ftpc.IsRemote(args[0]) {
		return nil, ftpc.Operation{}, usagef("%s: %q is not an ftp:// URL", verb, args[0])
	}

	remote, err := ftpc.ParseURL(args[0])
	if err != nil {
		return nil, ftpc.Operation{}, usageError{err: err}
	}
	return remote, ftpc.Operation{Verb: verb, RemotePath: remote.Path}, nil
}

func resolveTransfer(verb ftpc.Verb, args []string) (*ftpc.Remote, ftpc.Operation, error) {
	if len(args) != 2 {
		return nil, ftpc.Operation{}, usagef("%s takes a source and a destination, got %d arguments", verb, len(args))
	}

	first, second := ftpc.IsRemote(args[0]), ftpc.IsRemote(args[1])
	switch {
	case first && second:
		return nil, ftpc.Operation{}, usagef("%s: both operands are remote, one must be a local path", verb)
	case !first && !second:
		return nil, ftpc.Operation{}, usagef("%s: neither operand is an ftp:// URL", verb)
	}

	op := ftpc.Operation{Verb: verb}
	raw := args[1]
	op.LocalPath = args[0]
	op.Direction = ftpc.Upload
	if first {
		raw = args[0]
		op.LocalPath = args[1]
		op.Direction = ftpc.Download
	}

	remote, err := ftpc.ParseURL(raw)
	if err != nil {
		return nil, ftpc.Operation{}, usageError{err: err}
	}
	op.RemotePath = remote.Path

	if err := op.Validate(); err != nil {
		return nil, ftpc.Operation{}, usageError{err: err}
	}
	return remote, op, nil
}
