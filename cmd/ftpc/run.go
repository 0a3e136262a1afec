package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gonzalop/ftpc"
	"github.com/sirupsen/logrus"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
	exitLocalIO
)

// runOperation runs one full session: connect, negotiate, execute and quit.
// QUIT is always attempted, on success as well as after any failure.
func (a *app) runOperation(ctx context.Context, verb ftpc.Verb, args []string) error {
	remote, op, err := resolve(verb, args)
	if err != nil {
		return err
	}

	var progress *progressReporter
	opts := []ftpc.Option{
		ftpc.WithTimeout(a.cfg.Timeout),
		ftpc.WithLogger(a.logger),
		ftpc.WithTranscript(a.stdout),
		ftpc.WithOutput(a.stdout),
		ftpc.WithFs(a.fs),
		ftpc.WithBandwidthLimit(a.cfg.BandwidthLimit),
	}
	if a.cfg.KeepSource {
		opts = append(opts, ftpc.WithKeepSource())
	}
	if a.cfg.Progress && op.Verb.NeedsDataChannel() {
		progress = &progressReporter{w: a.stderr, interval: 250 * time.Millisecond}
		opts = append(opts, ftpc.WithProgress(progress.report))
	}

	a.dialed = true
	client, err := ftpc.Dial(ctx, remote.Addr(), opts...)
	if err != nil {
		return err
	}
	defer func() { _ = client.Quit() }()

	if err := client.Negotiate(remote.Credentials()); err != nil {
		return err
	}

	start := time.Now()
	n, err := client.Execute(ctx, op)
	if progress != nil {
		progress.finish()
	}
	if err != nil {
		return err
	}

	a.summarize(op, n, time.Since(start))
	return nil
}

func (a *app) summarize(op ftpc.Operation, n int64, elapsed time.Duration) {
	entry := a.logger.WithFields(logrus.Fields{
		"verb":   op.Verb.String(),
		"remote": op.RemotePath,
	})

	if op.Verb != ftpc.VerbCopy && op.Verb != ftpc.VerbMove {
		entry.Debug("done")
		return
	}

	rate := ""
	if secs := elapsed.Seconds(); secs > 0 {
		rate = fmt.Sprintf(" (%s/s)", humanize.Bytes(uint64(float64(n)/secs)))
	}
	if op.Direction == ftpc.Upload {
		entry.Infof("uploaded %s from %s%s", humanize.Bytes(uint64(n)), op.LocalPath, rate)
	} else {
		entry.Infof("downloaded %s to %s%s", humanize.Bytes(uint64(n)), op.LocalPath, rate)
	}
}

func (a *app) exitCode(err error) int {
	var (
		localErr *ftpc.LocalIOError
		respErr  *ftpc.ResponseError
		protoErr *ftpc.ProtocolError
		connErr  *ftpc.ConnectionError
	)
	switch {
	case err == nil:
		return exitOK
	case isUsageError(err):
		return exitUsage
	case errors.As(err, &localErr):
		return exitLocalIO
	case errors.As(err, &respErr), errors.As(err, &protoErr), errors.As(err, &connErr):
		return exitFailure
	case !a.dialed:
		// cobra's own errors, e.g. an unknown subcommand
		return exitUsage
	}
	return exitFailure
}

// progressReporter prints the running byte count, at most once per interval.
type progressReporter struct {
	w        io.Writer
	interval time.Duration
	last     time.Time
	latest   int64
	printed  bool
}

func (p *progressReporter) report(n int64) {
	p.latest = n
	if time.Since(p.last) < p.interval {
		return
	}
	p.last = time.Now()
	p.printed = true
	fmt.Fprintf(p.w, "\r%s transferred", humanize.Bytes(uint64(n)))
}

func (p *progressReporter) finish() {
	if !p.printed {
		return
	}
	fmt.Fprintf(p.w, "\r%s transferred\n", humanize.Bytes(uint64(p.latest)))
}
