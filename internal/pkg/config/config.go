package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Source    SourceConfig    `mapstructure:"source"`
	Animation AnimationConfig `mapstructure:"animation"`
	List      ListConfig      `mapstructure:"list"`
	Render    RenderConfig    `mapstructure:"render"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr       string `mapstructure:"addr"`
	CatalogTTL int    `mapstructure:"catalog_ttl"` // seconds
	Prefix     string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SourceConfig selects where route data comes from.
type SourceConfig struct {
	Kind   string `mapstructure:"kind"`   // file | postgres
	Path   string `mapstructure:"path"`   // file sources only
	Format string `mapstructure:"format"` // geojson | wkt
}

type AnimationConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DurationMS int  `mapstructure:"duration_ms"`
	DelayMS    int  `mapstructure:"delay_ms"`
	StaggerMS  int  `mapstructure:"stagger_ms"`
}

func (a AnimationConfig) Duration() time.Duration {
	return time.Duration(a.DurationMS) * time.Millisecond
}

func (a AnimationConfig) Delay() time.Duration {
	return time.Duration(a.DelayMS) * time.Millisecond
}

func (a AnimationConfig) Stagger() time.Duration {
	return time.Duration(a.StaggerMS) * time.Millisecond
}

type ListConfig struct {
	ItemHeight     int `mapstructure:"item_height"`
	ViewportHeight int `mapstructure:"viewport_height"`
}

type RenderConfig struct {
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	Padding         int    `mapstructure:"padding"`
	FrameIntervalMS int    `mapstructure:"frame_interval_ms"`
	OutDir          string `mapstructure:"out_dir"`
}

func (r RenderConfig) FrameInterval() time.Duration {
	return time.Duration(r.FrameIntervalMS) * time.Millisecond
}

type TemporalConfig struct {
	HostPort        string `mapstructure:"host_port"`
	TaskQueue       string `mapstructure:"task_queue"`
	RefreshInterval int    `mapstructure:"refresh_interval"` // seconds
}

// Load reads configuration from .env files, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRAILMAP_SOURCE_KIND → source.kind
	v.SetEnvPrefix("TRAILMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "trailmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "trailmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.catalog_ttl", 300)
	v.SetDefault("valkey.prefix", "trailmap:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.path", "./data/trails.geojson")
	v.SetDefault("source.format", "geojson")
	v.SetDefault("animation.enabled", true)
	v.SetDefault("animation.duration_ms", 1000)
	v.SetDefault("animation.delay_ms", 0)
	v.SetDefault("animation.stagger_ms", 100)
	v.SetDefault("list.item_height", 32)
	v.SetDefault("list.viewport_height", 128)
	v.SetDefault("render.width", 1024)
	v.SetDefault("render.height", 768)
	v.SetDefault("render.padding", 32)
	v.SetDefault("render.frame_interval_ms", 16)
	v.SetDefault("render.out_dir", "./frames")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "trail-catalog")
	v.SetDefault("temporal.refresh_interval", 900)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Source.Kind {
	case "file":
		if c.Source.Path == "" {
			errs = append(errs, "source.path is required for file sources")
		}
		if c.Source.Format != "geojson" && c.Source.Format != "wkt" {
			errs = append(errs, fmt.Sprintf("source.format must be geojson or wkt, got %q", c.Source.Format))
		}
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.kind must be file or postgres, got %q", c.Source.Kind))
	}

	if c.Animation.DurationMS < 0 || c.Animation.DelayMS < 0 || c.Animation.StaggerMS < 0 {
		errs = append(errs, "animation timings must not be negative")
	}
	if c.List.ItemHeight <= 0 {
		errs = append(errs, "list.item_height must be positive")
	}
	if c.List.ViewportHeight < 0 {
		errs = append(errs, "list.viewport_height must not be negative")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, "render.width and render.height must be positive")
	}
	if c.Render.Padding < 0 || 2*c.Render.Padding >= min(c.Render.Width, c.Render.Height) {
		errs = append(errs, "render.padding must leave a drawable area")
	}
	if c.Render.FrameIntervalMS <= 0 {
		errs = append(errs, "render.frame_interval_ms must be positive")
	}
	if c.Temporal.RefreshInterval <= 0 {
		errs = append(errs, "temporal.refresh_interval must be positive")
	}
	if c.Valkey.CatalogTTL < 0 {
		errs = append(errs, "valkey.catalog_ttl must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
