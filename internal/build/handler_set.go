package build

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// fanoutHandler duplicates every log record across a set of sinks so that
// a single subsystem logger can write to both stderr and the rotating
// critic.log file. It implements the full btclog.Handler surface because
// the logger returned by LogManager drives it through that interface.
type fanoutHandler struct {
	level btclog.Level
	set   []btclogv2.Handler
}

// newFanoutHandler builds a fanoutHandler over the given sinks, starting
// all of them at the info level.
func newFanoutHandler(handlers ...btclogv2.Handler) *fanoutHandler {
	h := &fanoutHandler{
		set:   handlers,
		level: btclog.LevelInfo,
	}
	h.SetLevel(h.level)

	return h
}

// allEnabled reports whether every sink accepts records at the given
// level. A record is only worth fanning out if no sink drops it.
func allEnabled[H slog.Handler](ctx context.Context, set []H,
	level slog.Level) bool {

	for _, handler := range set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// handleAll dispatches the record to every sink, stopping at the first
// failure.
func handleAll[H slog.Handler](ctx context.Context, set []H,
	record slog.Record) error {

	for _, handler := range set {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// Enabled reports whether the handler handles records at the given level.
//
// NOTE: this is part of the slog.Handler interface.
func (h *fanoutHandler) Enabled(ctx context.Context,
	level slog.Level) bool {

	return allEnabled(ctx, h.set, level)
}

// Handle dispatches the record to every sink.
//
// NOTE: this is part of the slog.Handler interface.
func (h *fanoutHandler) Handle(ctx context.Context,
	record slog.Record) error {

	return handleAll(ctx, h.set, record)
}

// WithAttrs returns a new handler whose sinks each carry the given
// attributes. The derived sinks only expose slog.Handler, so the result
// is a slogFanout rather than a fanoutHandler.
//
// NOTE: this is part of the slog.Handler interface.
func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return deriveFanout(h.set, func(s btclogv2.Handler) slog.Handler {
		return s.WithAttrs(attrs)
	})
}

// WithGroup returns a new handler whose sinks each carry the given group.
//
// NOTE: this is part of the slog.Handler interface.
func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return deriveFanout(h.set, func(s btclogv2.Handler) slog.Handler {
		return s.WithGroup(name)
	})
}

// SubSystem creates a new handler with the given sub-system tag applied
// to every sink.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *fanoutHandler) SubSystem(tag string) btclogv2.Handler {
	newSet := &fanoutHandler{
		set:   make([]btclogv2.Handler, len(h.set)),
		level: h.level,
	}
	for i, handler := range h.set {
		newSet.set[i] = handler.SubSystem(tag)
	}

	return newSet
}

// SetLevel changes the logging level on every sink.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *fanoutHandler) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

// Level returns the current logging level.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *fanoutHandler) Level() btclog.Level {
	return h.level
}

// WithPrefix returns a copy of the handler with the given string prefixed
// to each log message on every sink.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *fanoutHandler) WithPrefix(prefix string) btclogv2.Handler {
	newSet := &fanoutHandler{
		set:   make([]btclogv2.Handler, len(h.set)),
		level: h.level,
	}
	for i, handler := range h.set {
		newSet.set[i] = handler.WithPrefix(prefix)
	}

	return newSet
}

var _ btclogv2.Handler = (*fanoutHandler)(nil)

// slogFanout is the plain slog.Handler form of fanoutHandler, produced
// once WithAttrs or WithGroup strips the btclog-specific surface from the
// derived sinks.
type slogFanout struct {
	set []slog.Handler
}

// deriveFanout maps every sink through f and wraps the results in a
// slogFanout.
func deriveFanout[H slog.Handler](set []H,
	f func(H) slog.Handler) *slogFanout {

	newSet := &slogFanout{set: make([]slog.Handler, len(set))}
	for i, handler := range set {
		newSet.set[i] = f(handler)
	}

	return newSet
}

// Enabled reports whether the handler handles records at the given level.
//
// NOTE: this is part of the slog.Handler interface.
func (r *slogFanout) Enabled(ctx context.Context, level slog.Level) bool {
	return allEnabled(ctx, r.set, level)
}

// Handle dispatches the record to every sink.
//
// NOTE: this is part of the slog.Handler interface.
func (r *slogFanout) Handle(ctx context.Context,
	record slog.Record) error {

	return handleAll(ctx, r.set, record)
}

// WithAttrs returns a new handler whose sinks each carry the given
// attributes.
//
// NOTE: this is part of the slog.Handler interface.
func (r *slogFanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return deriveFanout(r.set, func(s slog.Handler) slog.Handler {
		return s.WithAttrs(attrs)
	})
}

// WithGroup returns a new handler whose sinks each carry the given group.
//
// NOTE: this is part of the slog.Handler interface.
func (r *slogFanout) WithGroup(name string) slog.Handler {
	return deriveFanout(r.set, func(s slog.Handler) slog.Handler {
		return s.WithGroup(name)
	})
}

var _ slog.Handler = (*slogFanout)(nil)
