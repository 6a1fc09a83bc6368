package timeout_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/statekit/timeout"
)

func TestGocronScheduler_RunsTimer(t *testing.T) {
	s, err := timeout.NewGocronScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fired := make(chan struct{}, 1)
	tm, err := timeout.New(func() { fired <- struct{}{} }, 20*time.Millisecond, timeout.WithScheduler(s))
	require.NoError(t, err)
	defer tm.Close()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("gocron job did not fire")
	}
	assert.False(t, tm.Pending())
}

func TestGocronScheduler_TinyDelays(t *testing.T) {
	s, err := timeout.NewGocronScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, d := range []time.Duration{0, time.Nanosecond, time.Microsecond} {
		t.Run(d.String(), func(t *testing.T) {
			fired := make(chan struct{}, 1)
			tm, err := timeout.New(func() { fired <- struct{}{} }, d, timeout.WithScheduler(s))
			require.NoError(t, err)
			defer tm.Close()

			select {
			case <-fired:
			case <-time.After(5 * time.Second):
				t.Fatalf("gocron job with delay %v did not fire", d)
			}
		})
	}
}

func TestGocronScheduler_ClearCancelsJob(t *testing.T) {
	s, err := timeout.NewGocronScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fired := make(chan struct{}, 1)
	tm, err := timeout.New(func() { fired <- struct{}{} }, 200*time.Millisecond, timeout.WithScheduler(s))
	require.NoError(t, err)
	tm.Clear()

	select {
	case <-fired:
		t.Fatal("cleared timer fired")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestClockScheduler_CancelUnknownHandle(t *testing.T) {
	s := timeout.NewClockScheduler(nil)
	assert.NotPanics(t, func() {
		s.Cancel(nil)
		s.Cancel("not a timer")
	})
}

func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr error
	}{
		{name: "empty defaults to clock", kind: ""},
		{name: "clock", kind: timeout.SchedulerClock},
		{name: "gocron", kind: timeout.SchedulerGocron},
		{name: "unknown", kind: "cron", wantErr: timeout.ErrUnknownScheduler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := timeout.NewScheduler(&timeout.Config{Scheduler: tt.kind})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
			assert.NoError(t, timeout.Close(s))
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := timeout.DefaultConfig()
	assert.Equal(t, timeout.SchedulerClock, cfg.Scheduler)

	cfg.Merge(&timeout.Config{})
	assert.Equal(t, timeout.SchedulerClock, cfg.Scheduler)

	cfg.Merge(&timeout.Config{Scheduler: timeout.SchedulerGocron})
	assert.Equal(t, timeout.SchedulerGocron, cfg.Scheduler)
}
