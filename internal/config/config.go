package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Web     WebConfig     `toml:"web"`
	DB      DBConfig      `toml:"db"`
	Mongo   MongoConfig   `toml:"mongo"`
	Redis   RedisConfig   `toml:"redis"`
	NATS    NATSConfig    `toml:"nats"`
	Spaces  SpacesConfig  `toml:"spaces"`
	Auction AuctionConfig `toml:"auction"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type WebConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	AdminToken string `toml:"admin_token"`
}

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type NATSConfig struct {
	URL string `toml:"url"`
}

type SpacesConfig struct {
	Key       string `toml:"key"`
	Secret    string `toml:"secret"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AuditRoot string `toml:"audit_root"`
}

// AuctionConfig carries the engine's timing knobs. Tiebreaker windows are
// soft deadlines checked lazily on access, so these values bound freshness,
// not correctness.
type AuctionConfig struct {
	TiebreakerWindowSeconds int `toml:"tiebreaker_window_seconds"`
	ReconcileAfterSeconds   int `toml:"reconcile_after_seconds"`
	ReconcileEverySeconds   int `toml:"reconcile_every_seconds"`
}

func (c *Config) applyDefaults() {
	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Auction.TiebreakerWindowSeconds == 0 {
		c.Auction.TiebreakerWindowSeconds = 300
	}
	if c.Auction.ReconcileAfterSeconds == 0 {
		c.Auction.ReconcileAfterSeconds = 120
	}
	if c.Auction.ReconcileEverySeconds == 0 {
		c.Auction.ReconcileEverySeconds = 60
	}
}

// TiebreakerWindow is the inactivity window granted to a freshly spawned
// tiebreaker before lazy resolution kicks in.
func (c *AuctionConfig) TiebreakerWindow() time.Duration {
	return time.Duration(c.TiebreakerWindowSeconds) * time.Second
}

func (c *AuctionConfig) ReconcileAfter() time.Duration {
	return time.Duration(c.ReconcileAfterSeconds) * time.Second
}

func (c *AuctionConfig) ReconcileEvery() time.Duration {
	return time.Duration(c.ReconcileEverySeconds) * time.Second
}
