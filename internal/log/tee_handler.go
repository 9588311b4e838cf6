package log

import (
	"context"
	"errors"
	"log/slog"
)

// TeeHandler fans each record out to several handlers.
// A record is passed to every handler that is enabled for its level, so
// the console and the log file can run at different levels.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler returns a handler writing to all non-nil handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	hs := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return &TeeHandler{handlers: hs}
}

// Enabled reports whether any handler accepts the level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards a clone of the record to every enabled handler.
// Errors from individual handlers are joined; one failing sink does not
// stop the others from receiving the record.
func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a TeeHandler whose handlers all carry attrs.
func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: hs}
}

// WithGroup returns a TeeHandler whose handlers all open the group.
func (t *TeeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: hs}
}
