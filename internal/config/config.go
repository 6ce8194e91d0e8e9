// Package config provides configuration loading, validation, and management
// for the ChatLens service. It reads from a YAML file and CHATLENS_*
// environment variables, applies defaults, and validates the result.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components of the
// ChatLens service: logging, the HTTP API, storage, the analysis pipeline,
// and scheduled maintenance.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"              validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"      validate:"min=1s,max=10m"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"     validate:"min=1s,max=10m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"  validate:"min=1s,max=5m"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"  validate:"min=1024"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type AnalysisConfig struct {
	// Timezone resolves naive export timestamps; empty means the process zone.
	Timezone string `mapstructure:"timezone"`
	// Language is the default lexical language for uploads that don't set one.
	Language string `mapstructure:"language" validate:"oneof=ru en uk uk-ru"`
	// Workers bounds concurrent analyses; each run is single-threaded.
	Workers int `mapstructure:"workers" validate:"min=1,max=16"`
	// QueueSize bounds analyses waiting for a worker.
	QueueSize int `mapstructure:"queue_size" validate:"min=1,max=1024"`
	// ProgressTTL is how long finished progress tokens linger.
	ProgressTTL time.Duration `mapstructure:"progress_ttl" validate:"min=10s,max=24h"`
}

type SchedulerConfig struct {
	// Cron expressions; empty disables a task.
	ProgressPurge  string `mapstructure:"progress_purge"`
	SQLMaintenance string `mapstructure:"sql_maintenance"`
}

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultServerAddr      = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadBytes  = 64 << 20

	DefaultDBPath = "chatlens.db"

	DefaultLanguage    = "ru"
	DefaultWorkers     = 2
	DefaultQueueSize   = 32
	DefaultProgressTTL = time.Hour

	DefaultProgressPurgeSchedule  = "*/5 * * * *"
	DefaultSQLMaintenanceSchedule = "0 4 * * *"
)

// Load reads configuration from the given YAML file (missing file is fine,
// defaults apply) and CHATLENS_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CHATLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.max_upload_bytes", DefaultMaxUploadBytes)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("analysis.timezone", "")
	v.SetDefault("analysis.language", DefaultLanguage)
	v.SetDefault("analysis.workers", DefaultWorkers)
	v.SetDefault("analysis.queue_size", DefaultQueueSize)
	v.SetDefault("analysis.progress_ttl", DefaultProgressTTL)

	v.SetDefault("scheduler.progress_purge", DefaultProgressPurgeSchedule)
	v.SetDefault("scheduler.sql_maintenance", DefaultSQLMaintenanceSchedule)
}
