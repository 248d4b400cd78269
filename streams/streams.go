// Package streams provides notification sinks for the configdb Resolver. It
// offers adapters that write to stdout/stderr, discard output, capture output
// in memory, or forward messages to slog or apex/log loggers.
package streams

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/apex/log"
)

// IOStreams is the contract the Resolver writes notices through. Out receives
// informational messages ("created template", "loaded profile"), ErrOut
// receives warnings.
type IOStreams interface {
	Out() io.Writer
	ErrOut() io.Writer
}

// BasicIOStreams forwards writes to two io.Writer targets.
type BasicIOStreams struct {
	out    io.Writer
	errOut io.Writer
}

func (s BasicIOStreams) Out() io.Writer    { return s.out }
func (s BasicIOStreams) ErrOut() io.Writer { return s.errOut }

// Std returns streams backed by os.Stdout and os.Stderr.
func Std() BasicIOStreams {
	return Writers(os.Stdout, os.Stderr)
}

// Writers returns streams that write Out to out and ErrOut to err.
func Writers(out, err io.Writer) BasicIOStreams {
	return BasicIOStreams{out: out, errOut: err}
}

// Discard drops all output.
func Discard() BasicIOStreams {
	return Writers(io.Discard, io.Discard)
}

// lockedBuffer is a mutex-protected bytes.Buffer.
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func (l *lockedBuffer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Reset()
}

// BufferStreams captures output in memory. It is safe for concurrent writers,
// so one value can be shared by resolvers running in several goroutines.
type BufferStreams struct {
	out    lockedBuffer
	errOut lockedBuffer
}

// Buffers returns empty BufferStreams.
func Buffers() *BufferStreams {
	return &BufferStreams{}
}

func (b *BufferStreams) Out() io.Writer    { return &b.out }
func (b *BufferStreams) ErrOut() io.Writer { return &b.errOut }

// Strings returns what has been written to Out and ErrOut so far.
func (b *BufferStreams) Strings() (out, errOut string) {
	return b.out.String(), b.errOut.String()
}

// Reset clears both buffers.
func (b *BufferStreams) Reset() {
	b.out.Reset()
	b.errOut.Reset()
}

// trimNewline drops one trailing newline so each Write becomes one record.
func trimNewline(p []byte) string {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	return string(p)
}

type slogWriter struct {
	l     *slog.Logger
	level slog.Level
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.l.Log(context.Background(), w.level, trimNewline(p))
	return len(p), nil
}

// Slog returns streams that log Out messages at level info and ErrOut
// messages at level err.
func Slog(l *slog.Logger, info, err slog.Level) BasicIOStreams {
	return BasicIOStreams{
		out:    slogWriter{l: l, level: info},
		errOut: slogWriter{l: l, level: err},
	}
}

type apexWriter struct {
	l    log.Interface
	warn bool
}

func (w apexWriter) Write(p []byte) (int, error) {
	if w.warn {
		w.l.Warn(trimNewline(p))
	} else {
		w.l.Info(trimNewline(p))
	}
	return len(p), nil
}

// Apex returns streams that log Out messages at info level and ErrOut
// messages at warn level on an apex/log logger. Pass log.Log to use the
// process-wide logger.
func Apex(l log.Interface) BasicIOStreams {
	return BasicIOStreams{
		out:    apexWriter{l: l},
		errOut: apexWriter{l: l, warn: true},
	}
}
