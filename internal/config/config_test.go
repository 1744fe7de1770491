package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/kernel"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tabula.db", c.DBPath)
	assert.Equal(t, 16, c.SnapshotEvery)
	assert.Zero(t, c.MaxEffectOps)

	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TABULA_DB", "/tmp/games.db")
	t.Setenv("TABULA_LOG_LEVEL", "debug")
	t.Setenv("TABULA_SNAPSHOT_EVERY", "4")
	t.Setenv("TABULA_MAX_EFFECT_OPS", "500")
	t.Setenv("TABULA_MAX_DECISION_PROBE_STEPS", "50")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/games.db", c.DBPath)
	assert.Equal(t, 4, c.SnapshotEvery)
	assert.Equal(t, 500, c.MaxEffectOps)
	assert.Equal(t, 50, c.MaxDecisionProbeSteps)

	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, key, value, msg string
	}{
		{"not an int", "TABULA_MAX_TEMPLATES", "many", "parse env:"},
		{"negative budget", "TABULA_MAX_TRIGGER_DEPTH", "-1", "TABULA_MAX_TRIGGER_DEPTH must not be negative"},
		{"negative snapshots", "TABULA_SNAPSHOT_EVERY", "-2", "TABULA_SNAPSHOT_EVERY"},
		{"bad level", "TABULA_LOG_LEVEL", "loud", "TABULA_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestKernelOptions(t *testing.T) {
	c := Config{MaxEffectOps: 7, MaxTriggerDepth: 2}

	o := kernel.DefaultOptions()
	for _, opt := range c.KernelOptions() {
		opt(&o)
	}
	want := kernel.DefaultOptions()
	want.MaxEffectOps = 7
	want.MaxTriggerDepth = 2
	assert.Equal(t, want, o)
}
