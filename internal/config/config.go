package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "rocketsim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds live telemetry stream settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN renders the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// StorageConfig selects and configures the episode storage backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"` // memory, sqlite, postgres, websocket
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
	DB        DBConfig        `json:"db" mapstructure:"db"`
	// SampleEvery stores one step in N; 1 stores every step.
	SampleEvery int `json:"sampleEvery" mapstructure:"sampleEvery"`
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled    bool
	Protocol   string
	Host       string
	Port       string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// URL is the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry metric settings
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	ExportInterval time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level          string
	Dir            string
	Graylog        bool
	GraylogAddress string
}

// RunConfig holds the headless runner settings
type RunConfig struct {
	Vehicle   string
	Profile   string // optional YAML vehicle profile
	Episodes  int    // parallel episodes in the fleet
	Steps     int    // fixed updates per run, 0 runs until every episode ends
	UPS       int    // fixed updates per second of simulated time
	Seed      uint64
	Autopilot bool
	MaxSteps  int // per-episode step limit, 0 keeps the preset's
	PlotDir   string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value without reading a file.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("run.vehicle", "lander")
	viper.SetDefault("run.profile", "")
	viper.SetDefault("run.episodes", 4)
	viper.SetDefault("run.steps", 0)
	viper.SetDefault("run.ups", 50)
	viper.SetDefault("run.seed", 1)
	viper.SetDefault("run.autopilot", false)
	viper.SetDefault("run.maxSteps", 3000)
	viper.SetDefault("run.plotDir", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "rocketsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "rocketsim")
	viper.SetDefault("influx.bucket", "episodes")
	viper.SetDefault("influx.backupPath", "./influx_backup.lp.gz")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sampleEvery", 5)
	viper.SetDefault("storage.memory.outputDir", "./episodes")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")
	viper.SetDefault("storage.sqlite.dumpPath", "./episodes.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/ws")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "rocketsim")
	viper.SetDefault("otel.exportInterval", "10s")
}

// RegisterFlags defines the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("vehicle", "lander", "vehicle preset: lander, hover or missile")
	fs.String("profile", "", "YAML vehicle profile overriding the preset")
	fs.Int("episodes", 4, "episodes stepped in parallel")
	fs.Int("steps", 0, "fixed updates to run, 0 runs until every episode ends")
	fs.Int("ups", 50, "fixed updates per simulated second")
	fs.Uint64("seed", 1, "arena random seed")
	fs.Bool("autopilot", false, "fly with the PID autopilot")
	fs.Int("max-steps", 3000, "per-episode step limit")
	fs.String("plots", "", "directory for trajectory and reward plots")
	fs.String("storage", "memory", "storage backend: memory, sqlite, postgres, websocket or none")
	fs.String("log-level", "info", "log level")
}

var flagKeys = map[string]string{
	"vehicle":   "run.vehicle",
	"profile":   "run.profile",
	"episodes":  "run.episodes",
	"steps":     "run.steps",
	"ups":       "run.ups",
	"seed":      "run.seed",
	"autopilot": "run.autopilot",
	"max-steps": "run.maxSteps",
	"plots":     "run.plotDir",
	"storage":   "storage.type",
	"log-level": "logLevel",
}

// BindFlags binds the flags defined by RegisterFlags to their config keys.
// A flag only overrides the file when it was set explicitly.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:        viper.GetString("storage.type"),
		SampleEvery: max(1, viper.GetInt("storage.sampleEvery")),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		ExportInterval: viper.GetDuration("otel.exportInterval"),
	}
}

// GetLogConfig returns the logger configuration.
func GetLogConfig() LogConfig {
	return LogConfig{
		Level:          viper.GetString("logLevel"),
		Dir:            viper.GetString("logsDir"),
		Graylog:        viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}

// GetRunConfig returns the headless runner configuration.
func GetRunConfig() RunConfig {
	return RunConfig{
		Vehicle:   viper.GetString("run.vehicle"),
		Profile:   viper.GetString("run.profile"),
		Episodes:  max(1, viper.GetInt("run.episodes")),
		Steps:     viper.GetInt("run.steps"),
		UPS:       max(1, viper.GetInt("run.ups")),
		Seed:      viper.GetUint64("run.seed"),
		Autopilot: viper.GetBool("run.autopilot"),
		MaxSteps:  viper.GetInt("run.maxSteps"),
		PlotDir:   viper.GetString("run.plotDir"),
	}
}
