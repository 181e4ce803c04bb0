package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"run": { "vehicle": "missile", "episodes": 16 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "missile", GetRunConfig().Vehicle)
	assert.Equal(t, 16, GetRunConfig().Episodes)
	assert.Equal(t, "10.0.0.1", GetStorageConfig().DB.Host)
	assert.Equal(t, "5433", GetStorageConfig().DB.Port)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "./episodes", viper.GetString("storage.memory.outputDir"))
	assert.Equal(t, true, viper.GetBool("storage.memory.compressOutput"))
	assert.Equal(t, "1m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "episodes", viper.GetString("influx.bucket"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "rocketsim", viper.GetString("otel.serviceName"))

	run := GetRunConfig()
	assert.Equal(t, "lander", run.Vehicle)
	assert.Equal(t, 4, run.Episodes)
	assert.Equal(t, 50, run.UPS)
	assert.Equal(t, uint64(1), run.Seed)
	assert.Equal(t, 3000, run.MaxSteps)
	assert.False(t, run.Autopilot)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("intKey", 7)
	viper.Set("boolKey", true)
	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 7, GetInt("intKey"))
	assert.True(t, GetBool("boolKey"))
}

func TestGetStorageConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("storage.type", "sqlite")
	viper.Set("storage.sqlite.dumpInterval", "30s")
	viper.Set("storage.sampleEvery", 0)

	cfg := GetStorageConfig()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, 30*time.Second, cfg.SQLite.DumpInterval)
	assert.Equal(t, "./episodes.db", cfg.SQLite.DumpPath)
	assert.Equal(t, 1, cfg.SampleEvery)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=rocketsim sslmode=disable", cfg.DB.DSN())
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("influx.host", "influx.local")

	cfg := GetInfluxConfig()
	assert.Equal(t, "http://influx.local:8086", cfg.URL())
	assert.Equal(t, "rocketsim", cfg.Org)
}

func TestGetOTelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetOTelConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 10*time.Second, cfg.ExportInterval)
}

func TestBindFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--vehicle", "missile", "--autopilot", "--storage", "sqlite"}))
	require.NoError(t, BindFlags(fs))

	run := GetRunConfig()
	assert.Equal(t, "missile", run.Vehicle)
	assert.True(t, run.Autopilot)
	assert.Equal(t, 4, run.Episodes)
	assert.Equal(t, "sqlite", GetStorageConfig().Type)
}

func TestBindFlags_FileWinsOverUnsetFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"run": {"ups": 100}}`), 0644))
	require.NoError(t, Load(dir))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, BindFlags(fs))

	assert.Equal(t, 100, GetRunConfig().UPS)
}
