package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ArchiveConfig holds trial archive backend settings.
type ArchiveConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// SQLiteConfig holds embedded database settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds server database settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// SnapshotConfig holds parsed-trial snapshot settings.
type SnapshotConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
}

// OTelConfig holds OpenTelemetry export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// StreamConfig holds playback stream server settings.
type StreamConfig struct {
	Addr     string        `json:"addr" mapstructure:"addr"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file
// is not an error; defaults apply.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./trialviz-logs")

	viper.SetDefault("trial.timeSteps", 900)

	viper.SetDefault("snapshot.outputDir", "./snapshots")

	viper.SetDefault("archive.type", "sqlite")
	viper.SetDefault("archive.sqlite.path", "./trialviz.db")
	viper.SetDefault("archive.postgres.host", "localhost")
	viper.SetDefault("archive.postgres.port", "5432")
	viper.SetDefault("archive.postgres.username", "postgres")
	viper.SetDefault("archive.postgres.password", "postgres")
	viper.SetDefault("archive.postgres.database", "trialviz")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "trialviz-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "trialviz")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("stream.addr", ":8700")
	viper.SetDefault("stream.interval", "1s")

	viper.SetConfigName("trialviz.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetArchiveConfig returns the trial archive settings.
func GetArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Type: viper.GetString("archive.type"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("archive.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("archive.postgres.host"),
			Port:     viper.GetString("archive.postgres.port"),
			Username: viper.GetString("archive.postgres.username"),
			Password: viper.GetString("archive.postgres.password"),
			Database: viper.GetString("archive.postgres.database"),
		},
	}
}

// GetSnapshotConfig returns the snapshot settings.
func GetSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		OutputDir: viper.GetString("snapshot.outputDir"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetStreamConfig returns the playback stream server settings.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Addr:     viper.GetString("stream.addr"),
		Interval: viper.GetDuration("stream.interval"),
	}
}
