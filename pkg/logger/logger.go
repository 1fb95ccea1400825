// Package logger builds slog loggers with optional ANSI coloring for terminals.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// highlightPrefixes mark info messages about completed pipeline stages.
var highlightPrefixes = []string{
	"Retrieved",
	"Routed",
	"Answer",
}

// Options configures a logger.
type Options struct {
	Level  slog.Level
	Format string // text or json
	Color  bool
}

// ColorHandler wraps a text handler and colors whole lines by level.
type ColorHandler struct {
	inner slog.Handler
	out   io.Writer
	mu    *sync.Mutex
	buf   *lineBuffer
}

type lineBuffer struct {
	data []byte
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// NewColorHandler returns a handler writing colored text records to w.
func NewColorHandler(w io.Writer, level slog.Leveler) *ColorHandler {
	buf := &lineBuffer{}
	return &ColorHandler{
		inner: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}),
		out:   w,
		mu:    &sync.Mutex{},
		buf:   buf,
	}
}

func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.data = h.buf.data[:0]
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	color := colorFor(r)
	if color == "" {
		_, err := h.out.Write(h.buf.data)
		return err
	}

	line := strings.TrimSuffix(string(h.buf.data), "\n")
	_, err := io.WriteString(h.out, color+line+colorReset+"\n")
	return err
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{inner: h.inner.WithAttrs(attrs), out: h.out, mu: h.mu, buf: h.buf}
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{inner: h.inner.WithGroup(name), out: h.out, mu: h.mu, buf: h.buf}
}

func colorFor(r slog.Record) string {
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case r.Level == slog.LevelInfo:
		for _, p := range highlightPrefixes {
			if strings.HasPrefix(r.Message, p) {
				return colorGreen
			}
		}
	}
	return ""
}

// NewLogger creates a logger writing to w.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	switch {
	case strings.EqualFold(opts.Format, "json"):
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	case opts.Color:
		return slog.New(NewColorHandler(w, opts.Level))
	default:
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
}

// NewDefaultLogger creates a colored text logger on stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return NewLogger(os.Stderr, Options{Level: level, Color: true})
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
