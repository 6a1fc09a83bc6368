package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/statekit/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  string
	}{
		{1, "TRACE"},
		{observability.LevelDebug, "DEBUG"},
		{observability.LevelInfo, "INFO"},
		{observability.LevelWarning, "WARN"},
		{observability.LevelError, "ERROR"},
		{21, "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  slog.Level
	}{
		{observability.LevelDebug, slog.LevelDebug},
		{observability.LevelInfo, slog.LevelInfo},
		{observability.LevelWarning, slog.LevelWarn},
		{observability.LevelError, slog.LevelError},
		{24, slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.SlogLevel(), "Level(%d)", tt.level)
	}
}

func TestEmitter_NilObserver(t *testing.T) {
	em := observability.NewEmitter(nil, "test")
	assert.NotPanics(t, func() {
		em.Emit(context.Background(), "test.event", observability.LevelInfo, nil)
	})
	assert.Equal(t, "test", em.Source())
}

func TestEmitter_StampsEvent(t *testing.T) {
	var events []observability.Event
	em := observability.NewEmitter(&captureObserver{events: &events}, "prefs/theme")

	before := time.Now()
	em.Emit(context.Background(), "persist.write", observability.LevelDebug, nil)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "prefs/theme", ev.Source)
	assert.False(t, ev.Timestamp.Before(before), "timestamp precedes emit")
	assert.NotNil(t, ev.Data)
}

func TestMultiObserver_FansOutAndSkipsNil(t *testing.T) {
	var a, b []observability.Event
	multi := observability.NewMultiObserver(nil, &captureObserver{events: &a}, nil, &captureObserver{events: &b})
	require.Len(t, multi, 2)

	multi.OnEvent(context.Background(), observability.Event{Type: "x"})

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestNoOpObserver(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NoOpObserver{}.OnEvent(context.Background(), observability.Event{Type: "ignored"})
	})
}

func TestSlogObserver_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		level    observability.Level
		minLevel slog.Level
		want     bool
	}{
		{"debug at debug handler", observability.LevelDebug, slog.LevelDebug, true},
		{"debug at info handler", observability.LevelDebug, slog.LevelInfo, false},
		{"info at warn handler", observability.LevelInfo, slog.LevelWarn, false},
		{"error at error handler", observability.LevelError, slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.minLevel}))

			observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
				Type:  "timeout.fire",
				Level: tt.level,
			})

			assert.Equal(t, tt.want, buf.Len() > 0, "buf: %q", buf.String())
		})
	}
}

func TestSlogObserver_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:   "async.run.finish",
		Level:  observability.LevelInfo,
		Source: "loader",
		Data:   map[string]any{"zeta": 1, "alpha": "a"},
	})

	out := buf.String()
	for _, want := range []string{"async.run.finish", "source=loader", "alpha=a", "zeta=1"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "alpha="), strings.Index(out, "zeta="), "attributes sorted")
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"noop", "slog"} {
		_, err := observability.GetObserver(name)
		assert.NoError(t, err, name)
	}

	_, err := observability.GetObserver("missing")
	assert.ErrorIs(t, err, observability.ErrUnknownObserver)

	var events []observability.Event
	observability.RegisterObserver("capture", &captureObserver{events: &events})

	obs, err := observability.GetObserver("capture")
	require.NoError(t, err)
	obs.OnEvent(context.Background(), observability.Event{Type: "x"})
	assert.Len(t, events, 1)
}

func TestPrometheusObserver(t *testing.T) {
	reg := prom.NewRegistry()
	obs, err := observability.NewPrometheusObserver(reg)
	require.NoError(t, err)

	ctx := context.Background()
	obs.OnEvent(ctx, observability.Event{Type: "async.run.finish", Level: observability.LevelInfo,
		Data: map[string]any{observability.DurationKey: 20 * time.Millisecond}})
	obs.OnEvent(ctx, observability.Event{Type: "async.run.finish", Level: observability.LevelInfo})
	obs.OnEvent(ctx, observability.Event{Type: "async.run.error", Level: observability.LevelWarning})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)

	again, err := observability.NewPrometheusObserver(reg)
	require.NoError(t, err, "registering twice reuses collectors")
	again.OnEvent(ctx, observability.Event{Type: "async.run.error", Level: observability.LevelWarning})

	n, err := testutil.GatherAndCount(reg, "statekit_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type captureObserver struct {
	events *[]observability.Event
}

func (c *captureObserver) OnEvent(_ context.Context, event observability.Event) {
	*c.events = append(*c.events, event)
}
