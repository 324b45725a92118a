// Package logx implements chariot's slog handler and terminal formatter.
//
// The handler buffers nothing itself; it holds a level and a pluggable
// formatter so the CLI can reconfigure verbosity and color support after
// flags are parsed but before any subcommand runs (the same two-phase
// bootstrap the daemon this project grew out of used: a sensible default
// logger before flag parsing, reconfigured in place afterward).
package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Formats a single log record into bytes for writing to a stream.
type Formatter interface {
	Format(r slog.Record, groups []string) []byte
}

// Dispatches slog records to a Formatter and writes the result to a stream.
//
// Level and stream may be changed after construction via SetLevel/SetStream;
// this lets the CLI start logging immediately at a default level and
// reconfigure once flags are parsed.
type Handler struct {
	mu        sync.Mutex
	level     slog.Leveler
	formatter Formatter
	stream    io.Writer
	groups    []string
	attrs     []slog.Attr
}

// Creates a handler with a default pretty formatter writing to stderr at
// info level.
func NewHandler() *Handler {
	return &Handler{
		level:     slog.LevelInfo,
		formatter: NewPrettyFormatter(false),
		stream:    os.Stderr,
	}
}

func (h *Handler) SetLevel(level slog.Leveler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

func (h *Handler) SetFormatter(f Formatter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.formatter = f
}

func (h *Handler) SetStream(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stream = w
}

// Flush is a no-op placeholder kept for symmetry with handlers that buffer;
// this handler writes synchronously, so there is nothing to flush.
func (h *Handler) Flush() {}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	formatter := h.formatter
	stream := h.stream
	groups := h.groups
	attrs := h.attrs
	h.mu.Unlock()

	merged := r
	merged.AddAttrs(attrs...)

	_, err := stream.Write(formatter.Format(merged, groups))
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Renders records as "[LEVEL] group: msg key=value ...", prefixed with an
// RFC 3339 timestamp when verbose, colorizing the level when the
// destination is a terminal.
type PrettyFormatter struct {
	color   bool
	verbose bool
}

func NewPrettyFormatter(color bool) *PrettyFormatter {
	return &PrettyFormatter{color: color}
}

func (f *PrettyFormatter) SetVerbose(v bool) {
	f.verbose = v
}

func (f *PrettyFormatter) Format(r slog.Record, groups []string) []byte {
	var buf bytes.Buffer

	if f.verbose {
		buf.WriteString(r.Time.Format(time.RFC3339) + " ")
	}

	buf.WriteString(f.levelTag(r.Level))
	buf.WriteByte(' ')

	if len(groups) > 0 {
		buf.WriteString(strings.Join(groups, "."))
		buf.WriteString(": ")
	}

	buf.WriteString(r.Message)

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, " %s=%v", a.Key, a.Value.Any())
		return true
	})

	buf.WriteByte('\n')
	return buf.Bytes()
}

func (f *PrettyFormatter) levelTag(level slog.Level) string {
	tag := level.String()
	if !f.color {
		return "[" + tag + "]"
	}

	code := "0"
	switch {
	case level >= slog.LevelError:
		code = "31"
	case level >= slog.LevelWarn:
		code = "33"
	case level >= slog.LevelInfo:
		code = "36"
	default:
		code = "90"
	}

	return fmt.Sprintf("\x1b[%sm[%s]\x1b[0m", code, tag)
}
