package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/config"
)

func writeConfig(t *testing.T, dir string, cfg map[string]any) {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))
}

func TestRunMissileFleet(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	out := filepath.Join(dir, "episodes")
	plots := filepath.Join(dir, "plots")
	logs := filepath.Join(dir, "logs")
	writeConfig(t, dir, map[string]any{
		"logLevel": "warn",
		"logsDir":  logs,
		"storage": map[string]any{
			"type":        "memory",
			"sampleEvery": 2,
			"memory":      map[string]any{"outputDir": out, "compressOutput": false},
		},
		"otel": map[string]any{"enabled": true, "exportInterval": "1h"},
		"run":  map[string]any{"plotDir": plots},
	})

	err := run([]string{"--config-dir", dir, "--vehicle", "missile", "--episodes", "3", "--max-steps", "20", "--autopilot"})
	require.NoError(t, err)

	exported, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, exported, 3)

	_, err = os.Stat(filepath.Join(plots, "altitude.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(plots, "episode_rewards.png"))
	assert.NoError(t, err)

	metrics, err := os.ReadFile(filepath.Join(logs, "rocketsim_metrics.json"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "rocketsim.steps")
}

func TestRunStepLimit(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	db := filepath.Join(dir, "episodes.db")
	writeConfig(t, dir, map[string]any{
		"logsDir": "",
		"storage": map[string]any{
			"sqlite": map[string]any{"path": filepath.Join(dir, "live.db"), "dumpPath": db},
		},
	})

	err := run([]string{"--config-dir", dir, "--vehicle", "lander", "--episodes", "2", "--steps", "5", "--storage", "sqlite"})
	require.NoError(t, err)
	assert.FileExists(t, db)
}

func TestRunUnknownVehicle(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, map[string]any{"logsDir": "", "storage": map[string]any{"type": "none"}})
	err := run([]string{"--config-dir", dir, "--vehicle", "shuttle"})
	assert.Error(t, err)
}
