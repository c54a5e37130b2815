// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration. The LUNCHBOT_* variable names
// predate this rewrite, so existing deployments keep working unchanged.
type Config struct {
	Nick    string `env:"LUNCHBOT_NICK,required"`
	Server  string `env:"LUNCHBOT_SERVER,required"`
	Port    int    `env:"LUNCHBOT_PORT" envDefault:"6667"`
	Channel string `env:"LUNCHBOT_CHANNEL,required"`

	// BackupFile enables flat-file state backups. BackupDB selects the
	// SQLite snapshot store instead and wins when both are set. Leaving
	// both empty disables backups.
	BackupFile string `env:"LUNCHBOT_BACKUP_FILE"`
	BackupDB   string `env:"LUNCHBOT_BACKUP_DB"`

	MetricsAddr string `env:"LUNCHBOT_METRICS_ADDR" envDefault:":9090"`

	ExpiryInterval time.Duration `env:"LUNCHBOT_EXPIRY_INTERVAL" envDefault:"60s"`
	BackupInterval time.Duration `env:"LUNCHBOT_BACKUP_INTERVAL" envDefault:"5m"`
}

// Addr returns the server host:port to dial.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// Parse loads configuration from environment variables.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
