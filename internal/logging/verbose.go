package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// VerboseHandler renders records as single human-readable lines:
//
//	[claude-pipe] waiting for response… polls=12
//
// The component attribute is dropped; it is noise for someone watching stderr.
type VerboseHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewVerboseHandler creates a handler writing prefixed lines to w.
func NewVerboseHandler(w io.Writer, level slog.Level) *VerboseHandler {
	return &VerboseHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *VerboseHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *VerboseHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(VerbosePrefix)
	if r.Level >= slog.LevelWarn {
		b.WriteString(r.Level.String())
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		if a.Key == "component" || a.Equal(slog.Attr{}) {
			return true
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Resolve())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *VerboseHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &VerboseHandler{mu: h.mu, w: h.w, level: h.level, attrs: newAttrs, group: h.group}
}

func (h *VerboseHandler) WithGroup(name string) slog.Handler {
	return &VerboseHandler{mu: h.mu, w: h.w, level: h.level, attrs: h.attrs, group: name}
}
