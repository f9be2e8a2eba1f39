package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler 把同一条记录同时写入轮转文件与 stdout。
// 每个下游独立判断级别，任一下游失败不会阻止其余下游写入。
type teeHandler struct {
	sinks []slog.Handler
}

func newTeeHandler(file, stdout slog.Handler) slog.Handler {
	return &teeHandler{sinks: []slog.Handler{file, stdout}}
}

func (h *teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		sinks[i] = fn(sink)
	}
	return &teeHandler{sinks: sinks}
}
