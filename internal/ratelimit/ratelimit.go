// Package ratelimit throttles data channel transfers to a fixed byte rate.
//
// Readers and writers are wrapped rather than the connection itself, so the
// same limiter can be shared by every transfer of a session.
package ratelimit

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// maxChunk bounds a single wait so that throttling stays smooth at high
// rates.
const maxChunk = 32 * 1024

// Limiter is a token bucket measured in bytes. A nil *Limiter means
// unlimited.
type Limiter struct {
	lim   *rate.Limiter
	chunk int
}

// New creates a limiter for bytesPerSecond. It returns nil for zero or
// negative rates. The bucket starts empty, so the very first bytes are
// already paced.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	chunk := maxChunk
	if bytesPerSecond/8 < maxChunk {
		chunk = int(bytesPerSecond / 8)
	}
	if chunk < 1 {
		chunk = 1
	}

	lim := rate.NewLimiter(rate.Limit(bytesPerSecond), chunk)
	lim.AllowN(time.Now(), chunk)

	return &Limiter{lim: lim, chunk: chunk}
}

// Rate returns the configured rate in bytes per second, or 0 for a nil
// limiter.
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return int64(l.lim.Limit())
}

type reader struct {
	ctx context.Context
	r   io.Reader
	l   *Limiter
}

// NewReader returns r throttled by l. With a nil limiter r is returned
// unchanged.
func NewReader(ctx context.Context, r io.Reader, l *Limiter) io.Reader {
	if l == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, l: l}
}

// Read reads at most one chunk and waits until the bytes read are paid for.
func (r *reader) Read(p []byte) (int, error) {
	if len(p) > r.l.chunk {
		p = p[:r.l.chunk]
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.l.lim.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

type writer struct {
	ctx context.Context
	w   io.Writer
	l   *Limiter
}

// NewWriter returns w throttled by l. With a nil limiter w is returned
// unchanged.
func NewWriter(ctx context.Context, w io.Writer, l *Limiter) io.Writer {
	if l == nil {
		return w
	}
	return &writer{ctx: ctx, w: w, l: l}
}

// Write pays for each chunk before writing it.
func (w *writer) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		chunk := min(len(p)-written, w.l.chunk)
		if err := w.l.lim.WaitN(w.ctx, chunk); err != nil {
			return written, err
		}

		n, err := w.w.Write(p[written : written+chunk])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
