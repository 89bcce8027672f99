package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"DiffPlot/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"5000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		Gzip            bool          `yaml:"gzip" default:"true"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		Endpoint    string `yaml:"endpoint" default:"localhost:4317"`
		ServiceName string `yaml:"service_name" default:"diffplot"`
	} `yaml:"tracing"`
	Archive struct {
		Root        string `yaml:"root" default:"/data"`
		IndexPrefix string `yaml:"index_prefix" default:"index_"`
	} `yaml:"archive"`
	Cache struct {
		Backend         string        `yaml:"backend" default:"file"`
		TTL             time.Duration `yaml:"ttl" default:"24h"`
		MaxEntries      int           `yaml:"max_entries" default:"50000"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		Dir             string        `yaml:"dir" default:"/tmp/diffplot_cache"`
		Stripes         int           `yaml:"stripes" default:"64"`
		Prefix          string        `yaml:"prefix" default:"diffplot"`
	} `yaml:"cache"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
	} `yaml:"redis"`
	Engine struct {
		LoadWorkers int `yaml:"load_workers" default:"8"`
		MaxDays     int `yaml:"max_days" default:"366"`
	} `yaml:"engine"`
	Discovery struct {
		Symbols    []string `yaml:"symbols"`
		SampleDate string   `yaml:"sample_date" default:"20250715"`
	} `yaml:"discovery"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Audit struct {
		Backend string        `yaml:"backend" default:"none"`
		Timeout time.Duration `yaml:"timeout" default:"2s"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"diffplot.plot_requests"`
			RequiredAcks int           `yaml:"required_acks" default:"1"`
			Compression  string        `yaml:"compression" default:"snappy"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"200ms"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host        string        `yaml:"host" default:"localhost"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"diffplot"`
			Table       string        `yaml:"table" default:"plot_requests"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			UseHTTP     bool          `yaml:"use_http"`
			AsyncInsert bool          `yaml:"async_insert" default:"true"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		} `yaml:"clickhouse"`
		Redis struct {
			Key    string `yaml:"key" default:"diffplot:audit"`
			MaxLen int64  `yaml:"max_len" default:"10000"`
		} `yaml:"redis"`
	} `yaml:"audit"`
}

// DefaultSymbols is the allow-list offered by discovery when none is configured.
var DefaultSymbols = []string{
	"N225.OSE.JPN",
	"SPX.CBOE",
	"NDX.NASDAQ",
	"RUT.RUSSELL",
	"MID.PSE",
	"DJI.CME",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.Discovery.Symbols = append([]string(nil), DefaultSymbols...)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Discovery.Symbols) == 0 {
		c.Discovery.Symbols = append([]string(nil), DefaultSymbols...)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file falls back to defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ARCHIVE_ROOT"); v != "" {
		c.Archive.Root = v
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("PORT"), c.Server.Port)
	c.Redis.Port = util.ParseIntDefault(os.Getenv("REDIS_PORT"), c.Redis.Port)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUDIT_BACKEND"); v != "" {
		c.Audit.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Audit.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Archive.Root == "" {
		return fmt.Errorf("archive.root is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case "memory", "file", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'file', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Cache.Backend == "file" && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required for the file backend")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Engine.LoadWorkers <= 0 {
		return fmt.Errorf("engine.load_workers must be positive")
	}
	if c.Engine.MaxDays <= 0 {
		return fmt.Errorf("engine.max_days must be positive")
	}
	if len(c.Discovery.SampleDate) != 8 {
		return fmt.Errorf("discovery.sample_date must be yyyymmdd, got '%s'", c.Discovery.SampleDate)
	}
	switch c.Audit.Backend {
	case "none", "":
	case "kafka":
		if len(c.Audit.Kafka.Brokers) == 0 {
			return fmt.Errorf("audit.kafka.brokers cannot be empty")
		}
	case "clickhouse":
		if c.Audit.ClickHouse.Host == "" {
			return fmt.Errorf("audit.clickhouse.host is required")
		}
	case "redis":
		if c.Audit.Redis.Key == "" {
			return fmt.Errorf("audit.redis.key is required")
		}
	default:
		return fmt.Errorf("audit.backend must be 'none', 'kafka', 'clickhouse' or 'redis', got '%s'", c.Audit.Backend)
	}
	return nil
}
