package clickhouse

import (
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Option configures a Client.
type Option func(*Config)

// Config describes the connection used to write audit rows.
type Config struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	HTTP         bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxOpenConns int
	AsyncInsert  bool
	WaitAsync    bool
}

func defaultConfig() Config {
	return Config{
		Port:         9000,
		Database:     "default",
		User:         "default",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		MaxOpenConns: 4,
	}
}

// WithAddr sets the server host and port.
func WithAddr(host string, port int) Option {
	return func(c *Config) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

// WithAuth sets the database and its credentials.
func WithAuth(database, user, password string) Option {
	return func(c *Config) {
		if database != "" {
			c.Database = database
		}
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.DialTimeout = d
		}
	}
}

// WithHTTP switches from the native protocol to HTTP.
func WithHTTP(enabled bool) Option {
	return func(c *Config) {
		c.HTTP = enabled
	}
}

// WithAsyncInsert lets the server buffer inserts; wait makes each insert
// block until the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) Option {
	return func(c *Config) {
		c.AsyncInsert = enabled
		c.WaitAsync = wait
	}
}

// NativeOptions translates cfg into clickhouse-go options.
func NativeOptions(cfg Config) *ch.Options {
	opts := &ch.Options{
		Addr: []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Protocol:        ch.Native,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxOpenConns / 2,
		ConnMaxLifetime: 5 * time.Minute,
	}
	if cfg.HTTP {
		opts.Protocol = ch.HTTP
	}
	if cfg.AsyncInsert {
		wait := 0
		if cfg.WaitAsync {
			wait = 1
		}
		opts.Settings = ch.Settings{
			"async_insert":          1,
			"wait_for_async_insert": wait,
		}
	}
	return opts
}
