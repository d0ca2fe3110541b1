package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr string

	StoreDriver string
	StoreDSN    string
	SeedFile    string

	IGDB IGDBConfig

	SearchRateLimit float64
	SearchBurst     int

	Log LogConfig
}

type IGDBConfig struct {
	ClientID          string
	ClientSecret      string
	TokenURL          string
	APIURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheURL          string
	CacheTTL          time.Duration
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.seed_file", "")

	v.SetDefault("igdb.token_url", "https://id.twitch.tv/oauth2/token")
	v.SetDefault("igdb.api_url", "https://api.igdb.com/v4")
	v.SetDefault("igdb.timeout", 10*time.Second)
	v.SetDefault("igdb.rate_limit", 4.0)
	v.SetDefault("igdb.cache_url", "")
	v.SetDefault("igdb.cache_ttl", time.Hour)

	v.SetDefault("search.rate_limit", 2.0)
	v.SetDefault("search.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}

// Load reads configuration from defaults, the optional file at path, and the
// environment. Environment keys use the GAMESHELF_ prefix with dots turned
// into underscores (GAMESHELF_STORE_DRIVER); IGDB_CLIENT_ID,
// IGDB_CLIENT_SECRET and PORT are honored as well.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GAMESHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("igdb.client_id", "GAMESHELF_IGDB_CLIENT_ID", "IGDB_CLIENT_ID")
	_ = v.BindEnv("igdb.client_secret", "GAMESHELF_IGDB_CLIENT_SECRET", "IGDB_CLIENT_SECRET")
	_ = v.BindEnv("server.port", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	addr := v.GetString("server.addr")
	if port := v.GetString("server.port"); port != "" {
		addr = ":" + port
	}

	cfg := &Config{
		ServerAddr:  addr,
		StoreDriver: strings.ToLower(v.GetString("store.driver")),
		StoreDSN:    v.GetString("store.dsn"),
		SeedFile:    v.GetString("store.seed_file"),
		IGDB: IGDBConfig{
			ClientID:          v.GetString("igdb.client_id"),
			ClientSecret:      v.GetString("igdb.client_secret"),
			TokenURL:          v.GetString("igdb.token_url"),
			APIURL:            v.GetString("igdb.api_url"),
			Timeout:           v.GetDuration("igdb.timeout"),
			RequestsPerSecond: v.GetFloat64("igdb.rate_limit"),
			CacheURL:          v.GetString("igdb.cache_url"),
			CacheTTL:          v.GetDuration("igdb.cache_ttl"),
		},
		SearchRateLimit: v.GetFloat64("search.rate_limit"),
		SearchBurst:     v.GetInt("search.burst"),
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age"),
			Compress:   v.GetBool("log.compress"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be memory, sqlite or postgres, got %q", c.StoreDriver)
	}
	if c.StoreDSN == "" {
		switch c.StoreDriver {
		case "sqlite":
			c.StoreDSN = "./gameshelf.db"
		case "postgres":
			return fmt.Errorf("store.dsn is required for postgres")
		}
	}
	if c.SearchRateLimit <= 0 || c.SearchBurst <= 0 {
		return fmt.Errorf("search.rate_limit and search.burst must be positive")
	}
	return nil
}
