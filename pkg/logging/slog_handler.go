package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Handler is an slog.Handler that wraps a base handler (typically stderr),
// forwards records to remote syslog servers and mirrors warnings into an
// EventBuffer so they show up next to configuration events.
type Handler struct {
	base   slog.Handler
	events *EventBuffer
	mu     *sync.RWMutex
	sinks  *[]*SyslogClient
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps base. events may be nil.
func NewHandler(base slog.Handler, events *EventBuffer) *Handler {
	return &Handler{
		base:   base,
		events: events,
		mu:     &sync.RWMutex{},
		sinks:  new([]*SyslogClient),
	}
}

// SetClients replaces the set of syslog clients. Old clients are closed.
// Handlers derived with WithAttrs or WithGroup share the set.
func (h *Handler) SetClients(clients []*SyslogClient) {
	h.mu.Lock()
	old := *h.sinks
	*h.sinks = clients
	h.mu.Unlock()

	for _, c := range old {
		c.Close()
	}
}

// Close closes all syslog clients.
func (h *Handler) Close() {
	h.SetClients(nil)
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.base.Handle(ctx, r)

	h.mu.RLock()
	clients := *h.sinks
	h.mu.RUnlock()

	var msg string
	if len(clients) > 0 || (h.events != nil && r.Level >= slog.LevelWarn) {
		msg = formatRecord(r, h.attrs, h.groups)
	}
	if len(clients) > 0 {
		severity := slogLevelToSyslog(r.Level)
		for _, c := range clients {
			if c.ShouldSend(severity) {
				c.Send(severity, msg)
			}
		}
	}
	if h.events != nil && r.Level >= slog.LevelWarn {
		h.events.Add(EventRecord{Time: r.Time, Type: EventLog, Source: "log", Message: msg})
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.base = h.base.WithAttrs(attrs)
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	c := *h
	c.base = h.base.WithGroup(name)
	c.groups = append(append([]string{}, h.groups...), name)
	return &c
}

// slogLevelToSyslog maps slog levels to syslog severity values.
func slogLevelToSyslog(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return SyslogError
	case level >= slog.LevelWarn:
		return SyslogWarning
	default:
		return SyslogInfo
	}
}

// formatRecord produces a compact text representation of a log record.
func formatRecord(r slog.Record, preAttrs []slog.Attr, groups []string) string {
	var b strings.Builder
	b.WriteString(r.Message)

	for _, a := range preAttrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		fmt.Fprintf(&b, " %s=%s", key, a.Value.String())
		return true
	})

	return b.String()
}
