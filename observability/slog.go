package observability

import (
	"context"
	"log/slog"
	"sort"
)

// SlogObserver writes events to a slog.Logger. The event type is the log
// message; the source and every Data entry become attributes, sorted by key
// so output is stable.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver returns a SlogObserver for logger, or for slog.Default
// when logger is nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Data[k]))
	}

	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
