package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// MultiHandler fans a record out to every handler that accepts its level.
// Records are handled one at a time so the SQLite sink sees them in order.
type MultiHandler struct {
	mu       *sync.Mutex
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{mu: new(sync.Mutex), handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.handlers, func(d slog.Handler) bool {
		return d.Enabled(ctx, level)
	})
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	for _, d := range h.handlers {
		if d.Enabled(ctx, r.Level) {
			err = errors.Join(err, d.Handle(ctx, r.Clone()))
		}
	}
	return err
}

// derive returns a handler sharing the lock, with every destination
// transformed by fn.
func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	derived := make([]slog.Handler, 0, len(h.handlers))
	for _, d := range h.handlers {
		derived = append(derived, fn(d))
	}
	return &MultiHandler{mu: h.mu, handlers: derived}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(d slog.Handler) slog.Handler { return d.WithGroup(name) })
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.derive(func(d slog.Handler) slog.Handler { return d.WithAttrs(attrs) })
}
