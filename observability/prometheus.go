package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// DurationKey is the Data key components use to report how long the
// transition took. PrometheusObserver records it in a histogram.
const DurationKey = "duration"

// PrometheusObserver counts events by type and severity and records
// reported durations.
type PrometheusObserver struct {
	events    *prom.CounterVec
	durations *prom.HistogramVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg uses a fresh private registry. Collectors already registered
// under the same names are reused.
func NewPrometheusObserver(reg prom.Registerer) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	events := prom.NewCounterVec(prom.CounterOpts{
		Namespace: "statekit",
		Name:      "events_total",
		Help:      "Component lifecycle events by type and severity",
	}, []string{"type", "level"})
	durations := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "statekit",
		Name:      "event_duration_seconds",
		Help:      "Duration reported by component events",
		Buckets:   prom.DefBuckets,
	}, []string{"type"})

	var err error
	if events, err = register(reg, events); err != nil {
		return nil, err
	}
	if durations, err = register(reg, durations); err != nil {
		return nil, err
	}

	return &PrometheusObserver{events: events, durations: durations}, nil
}

func register[C prom.Collector](reg prom.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prom.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register prometheus collector: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()

	if d, ok := event.Data[DurationKey].(time.Duration); ok {
		o.durations.WithLabelValues(string(event.Type)).Observe(d.Seconds())
	}
}
