// Package utils loads imagehub configuration and builds the logger.
package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "IMAGEHUB"

type Config struct {
	HTTP         ServerConfig       `mapstructure:"http"`
	Sync         ServerConfig       `mapstructure:"sync"`
	GRPC         ServerConfig       `mapstructure:"grpc"`
	Manifest     ManifestConfig     `mapstructure:"manifest"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Fetch        FetchConfig        `mapstructure:"fetch"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type ManifestConfig struct {
	URL string `mapstructure:"url"`
}

type CacheConfig struct {
	Root              string `mapstructure:"root"`
	FullCapacity      int    `mapstructure:"full_capacity"`
	ThumbnailCapacity int    `mapstructure:"thumbnail_capacity"`
	FullQuality       int    `mapstructure:"full_quality"`
	ThumbnailQuality  int    `mapstructure:"thumbnail_quality"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
	UserAgent string        `mapstructure:"user_agent"`
}

type ConnectivityConfig struct {
	ProbeAddr   string        `mapstructure:"probe_addr"`
	Interval    time.Duration `mapstructure:"interval"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer"`
	JWTDuration time.Duration `mapstructure:"jwt_ttl"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads cfgFile (or imagehub.yaml from the working directory
// and ~/.imagehub) and IMAGEHUB_* environment variables on top of the
// defaults. A missing config file is not an error.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("imagehub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.imagehub")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Cache.Root = expandHome(cfg.Cache.Root)
	cfg.Database.Path = expandHome(cfg.Database.Path)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("sync.addr", ":7070")
	v.SetDefault("grpc.addr", ":9090")

	v.SetDefault("manifest.url", "https://it-link.ru/test/images.txt")

	v.SetDefault("cache.root", "~/.imagehub/cache")
	v.SetDefault("cache.full_capacity", 100)
	v.SetDefault("cache.thumbnail_capacity", 200)
	v.SetDefault("cache.full_quality", 100)
	v.SetDefault("cache.thumbnail_quality", 80)

	v.SetDefault("fetch.timeout", time.Duration(0))
	v.SetDefault("fetch.max_bytes", 32<<20)
	v.SetDefault("fetch.user_agent", "imagehub/1.0")

	v.SetDefault("connectivity.probe_addr", "1.1.1.1:443")
	v.SetDefault("connectivity.interval", 5*time.Second)
	v.SetDefault("connectivity.dial_timeout", 3*time.Second)

	// dev default, override with IMAGEHUB_AUTH_JWT_SECRET
	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.jwt_issuer", "imagehub")
	v.SetDefault("auth.jwt_ttl", 24*time.Hour)

	v.SetDefault("database.path", "~/.imagehub/data.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func validate(cfg *Config) error {
	if cfg.Cache.FullCapacity <= 0 || cfg.Cache.ThumbnailCapacity <= 0 {
		return fmt.Errorf("cache capacities must be positive")
	}
	for name, q := range map[string]int{"full_quality": cfg.Cache.FullQuality, "thumbnail_quality": cfg.Cache.ThumbnailQuality} {
		if q < 1 || q > 100 {
			return fmt.Errorf("cache.%s must be within 1..100, got %d", name, q)
		}
	}
	if cfg.Cache.Root == "" {
		return fmt.Errorf("cache.root is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}
	return nil
}
