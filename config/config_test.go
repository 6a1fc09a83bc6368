package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/statekit/config"
	"github.com/tailored-agentic-units/statekit/observability"
	"github.com/tailored-agentic-units/statekit/storage"
	"github.com/tailored-agentic-units/statekit/timeout"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, storage.KindSession, cfg.Storage.Kind)
	assert.Equal(t, timeout.SchedulerClock, cfg.Timeout.Scheduler)
	assert.Equal(t, "slog", cfg.Observer)
	assert.False(t, cfg.Metrics)
}

func TestConfig_Merge_ZeroValuesPreserveDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Merge(&config.Config{})

	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestConfig_Merge(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Merge(&config.Config{
		Storage:  storage.Config{Kind: storage.KindFile, Path: "/var/lib/app"},
		Observer: "noop",
		Metrics:  true,
	})

	assert.Equal(t, storage.Config{Kind: storage.KindFile, Path: "/var/lib/app"}, cfg.Storage)
	assert.Equal(t, timeout.SchedulerClock, cfg.Timeout.Scheduler, "default preserved")
	assert.Equal(t, "noop", cfg.Observer)
	assert.True(t, cfg.Metrics)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "statekit.json", `{
		"storage": {"kind": "sqlite", "path": ":memory:"},
		"timeout": {"scheduler": "gocron"}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, storage.Config{Kind: storage.KindSQLite, Path: ":memory:"}, cfg.Storage)
	assert.Equal(t, timeout.SchedulerGocron, cfg.Timeout.Scheduler)
	assert.Equal(t, "slog", cfg.Observer, "default preserved")
}

func TestLoad_YAMLExpandsEnv(t *testing.T) {
	t.Setenv("STATEKIT_ROOT", "/srv/state")
	path := writeFile(t, "statekit.yaml", `
storage:
  kind: file
  path: ${STATEKIT_ROOT}/values
observer: noop
metrics: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/state/values", cfg.Storage.Path)
	assert.Equal(t, "noop", cfg.Observer)
	assert.True(t, cfg.Metrics)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err, "missing file")

	_, err = config.Load(writeFile(t, "bad.yml", "storage: [unterminated"))
	assert.Error(t, err, "malformed yaml")
}

func TestConfig_NewBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage = storage.Config{Kind: storage.KindFile, Path: t.TempDir()}

	b, err := cfg.NewBackend()
	require.NoError(t, err)
	defer storage.Close(b)

	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "app/theme", `"dark"`))
	got, ok, err := b.Get(ctx, "app/theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"dark"`, got)
}

func TestConfig_NewScheduler(t *testing.T) {
	cfg := config.DefaultConfig()

	s, err := cfg.NewScheduler()
	require.NoError(t, err)
	assert.IsType(t, &timeout.ClockScheduler{}, s)
}

func TestConfig_NewObserver(t *testing.T) {
	t.Run("named", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Observer = "noop"

		obs, err := cfg.NewObserver(nil)
		require.NoError(t, err)
		assert.IsType(t, observability.NoOpObserver{}, obs)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Observer = "zipkin"

		_, err := cfg.NewObserver(nil)
		assert.ErrorIs(t, err, observability.ErrUnknownObserver)
	})

	t.Run("metrics", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Observer = "noop"
		cfg.Metrics = true
		reg := prom.NewRegistry()

		obs, err := cfg.NewObserver(reg)
		require.NoError(t, err)
		obs.OnEvent(context.Background(), observability.Event{Type: "timeout.fire", Level: observability.LevelInfo})

		n, err := testutil.GatherAndCount(reg, "statekit_events_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
