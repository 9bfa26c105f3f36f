package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL 服务端固定地址；holders / traders 共用，仅路径不同
const DefaultBaseURL = "ws://34.107.31.9"

type Config struct {
	App struct {
		PrintEveryMin int    `toml:"print_every_min"`
		Mint          string `toml:"mint"` // 启动后订阅的 mint，可为空
		Top           int    `toml:"top"`  // 快照行每个种类展示的条目数
	} `toml:"app"`

	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"` // 为空则只输出到控制台
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
		Compress   bool   `toml:"compress"`
	} `toml:"log"`

	Feed struct {
		BaseURL          string        `toml:"base_url"`
		Kinds            []string      `toml:"kinds"`
		HandshakeTimeout time.Duration `toml:"handshake_timeout"`
		PingInterval     time.Duration `toml:"ping_interval"`
		PongWait         time.Duration `toml:"pong_wait"`
		WriteWait        time.Duration `toml:"write_wait"`

		Reconnect struct {
			Enabled    bool          `toml:"enabled"`
			MaxRetries int           `toml:"max_retries"`
			Min        time.Duration `toml:"min"`
			Max        time.Duration `toml:"max"`
			Factor     float64       `toml:"factor"`
			Jitter     bool          `toml:"jitter"`
		} `toml:"reconnect"`
	} `toml:"feed"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
			Channel    string `toml:"channel"`
		} `toml:"redis"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyDefaults(&cfg, md)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg, toml.MetaData{})
	return &cfg
}

// applyDefaults 填充缺省值；ping_interval / pong_wait 显式写 0 表示关闭，只有缺失时才取默认
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.App.PrintEveryMin <= 0 {
		cfg.App.PrintEveryMin = 5
	}
	if cfg.App.Top <= 0 {
		cfg.App.Top = 5
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 14
	}

	if strings.TrimSpace(cfg.Feed.BaseURL) == "" {
		cfg.Feed.BaseURL = DefaultBaseURL
	}
	if len(cfg.Feed.Kinds) == 0 {
		cfg.Feed.Kinds = []string{"holders", "traders"}
	}
	if !md.IsDefined("feed", "ping_interval") {
		cfg.Feed.PingInterval = 25 * time.Second
	}
	if !md.IsDefined("feed", "pong_wait") {
		cfg.Feed.PongWait = 60 * time.Second
	}
	if cfg.Feed.WriteWait <= 0 {
		cfg.Feed.WriteWait = 5 * time.Second
	}
	if cfg.Feed.Reconnect.Min <= 0 {
		cfg.Feed.Reconnect.Min = 1 * time.Second
	}
	if cfg.Feed.Reconnect.Max <= 0 {
		cfg.Feed.Reconnect.Max = 30 * time.Second
	}
	if cfg.Feed.Reconnect.Factor <= 0 {
		cfg.Feed.Reconnect.Factor = 2
	}

	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/topfeed.db"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "topfeed"
	}
}

func validate(cfg *Config) error {
	cfg.Feed.Kinds = normalizeKinds(cfg.Feed.Kinds)
	if len(cfg.Feed.Kinds) == 0 {
		return errors.New("feed.kinds is empty")
	}

	u, err := url.Parse(strings.TrimSpace(cfg.Feed.BaseURL))
	if err != nil {
		return fmt.Errorf("feed.base_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.base_url scheme %q, want ws or wss", u.Scheme)
	}
	if cfg.Feed.PingInterval < 0 || cfg.Feed.PongWait < 0 || cfg.Feed.HandshakeTimeout < 0 {
		return errors.New("feed timeouts must not be negative")
	}
	if cfg.Feed.Reconnect.Min > cfg.Feed.Reconnect.Max {
		return errors.New("feed.reconnect.min greater than max")
	}

	cfg.App.Mint = strings.TrimSpace(cfg.App.Mint)

	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path empty but enabled")
	}
	return nil
}

func normalizeKinds(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
