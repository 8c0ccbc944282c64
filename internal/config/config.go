// Package config loads mika settings from defaults, an optional file and
// MIKA_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	ColdStore   ColdStoreConfig   `mapstructure:"coldstore"`
	Log         LogConfig         `mapstructure:"log"`
	Client      ClientConfig      `mapstructure:"client"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Warmup      WarmupConfig      `mapstructure:"warmup"`
}

type ServerConfig struct {
	// Addr is the listen address of the API server
	// :34001
	Addr string `mapstructure:"addr"`
	// APIRoot prefixes every tracker route
	// /v1
	APIRoot string `mapstructure:"api_root"`
	// APIToken enables bearer authentication when set
	APIToken        string        `mapstructure:"api_token"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TxRetries bounds optimistic transaction retries
	TxRetries int `mapstructure:"tx_retries"`
}

type ColdStoreConfig struct {
	// DSN of the relational store, e.g. postgres://mika@localhost/tracker
	DSN string `mapstructure:"dsn"`
	// UserStats imports historical uploaded/downloaded columns
	UserStats bool `mapstructure:"user_stats"`
}

type LogConfig struct {
	// Level is one of debug|info|warn|error
	Level string `mapstructure:"level"`
	// Format is text|json
	Format string `mapstructure:"format"`
	// File enables a rotating log file next to stdout output
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type ClientConfig struct {
	// APIURL is the API root the admin client talks to
	// http://localhost:34001/v1
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MaintenanceConfig struct {
	// Schedule is a crontab expression; empty disables scheduled cleanup
	// 0 * * * *
	Schedule string `mapstructure:"schedule"`
	Delete   bool   `mapstructure:"delete"`
	Update   bool   `mapstructure:"update"`
}

type WarmupConfig struct {
	OnStart bool `mapstructure:"on_start"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":34001")
	v.SetDefault("server.api_root", "/v1")
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tx_retries", 10)

	v.SetDefault("coldstore.dsn", "")
	v.SetDefault("coldstore.user_stats", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("client.api_url", "http://localhost:34001/v1")
	v.SetDefault("client.timeout", 10*time.Second)

	v.SetDefault("maintenance.schedule", "")
	v.SetDefault("maintenance.delete", false)
	v.SetDefault("maintenance.update", false)

	v.SetDefault("warmup.on_start", false)
}

// Load reads path when non-empty, otherwise looks for mika.{yaml,json,toml}
// in the working directory. A missing implicit file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MIKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mika")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	return nil
}
