package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"DiffPlot/internal/domain/repository"
	"DiffPlot/internal/handler/api"
	internalrepo "DiffPlot/internal/repository"
	slicecache "DiffPlot/internal/service/cache"
	"DiffPlot/internal/service/ratelimit"
	"DiffPlot/internal/services/discovery"
	"DiffPlot/internal/usecase"
	pkgcache "DiffPlot/pkg/cache"
	pkgch "DiffPlot/pkg/clickhouse"
	"DiffPlot/pkg/config"
	xhttp "DiffPlot/pkg/http"
	pkgkafka "DiffPlot/pkg/kafka"
	applogger "DiffPlot/pkg/logger"
	"DiffPlot/pkg/metrics"
	"DiffPlot/pkg/server"
	"DiffPlot/pkg/tracing"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", cfg.Tracing.ServiceName)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideTracerProvider installs the global tracer provider.
func ProvideTracerProvider(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	tp, _, err := tracing.InitTracer(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	return tp, nil
}

// ProvideSliceLoader creates the CSV archive reader.
func ProvideSliceLoader(cfg *config.Config, l *applogger.Logger) *internalrepo.CSVSliceLoader {
	return internalrepo.NewCSVSliceLoader(cfg.Archive.Root, cfg.Archive.IndexPrefix, l)
}

// ProvideRedisConn creates the Redis connection shared by the cache and the
// audit sink. Nothing is dialed until a backend asks for the client.
func ProvideRedisConn(cfg *config.Config) *pkgcache.RedisConn {
	return pkgcache.NewRedisConn(pkgcache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: 2,
	})
}

// ProvideCacheStore creates the slice cache backend selected by cache.backend.
func ProvideCacheStore(cfg *config.Config, conn *pkgcache.RedisConn) (pkgcache.Service, error) {
	switch cfg.Cache.Backend {
	case "file":
		fc, err := pkgcache.NewFileCache(
			pkgcache.WithFileDir(cfg.Cache.Dir),
			pkgcache.WithFileDefaultTTL(cfg.Cache.TTL),
		)
		if err != nil {
			return nil, fmt.Errorf("file cache: %w", err)
		}
		return fc, nil
	case "redis", "layered":
		client, err := conn.Client(context.Background())
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		rc := pkgcache.NewRedisCache(client, cfg.Cache.Prefix)
		if cfg.Cache.Backend == "redis" {
			return rc, nil
		}
		l1 := pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
			pkgcache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		)
		return pkgcache.NewLayeredCache(l1, rc, cfg.Cache.CleanupInterval), nil
	default:
		return pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
			pkgcache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
			pkgcache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}
}

// ProvideSliceCache wraps the loader with the mtime-validated cache.
func ProvideSliceCache(
	cfg *config.Config,
	store pkgcache.Service,
	loader *internalrepo.CSVSliceLoader,
	m repository.Metrics,
	l *applogger.Logger,
) *slicecache.SliceCache {
	return slicecache.NewSliceCache(store, loader,
		slicecache.WithTTL(cfg.Cache.TTL),
		slicecache.WithStripes(cfg.Cache.Stripes),
		slicecache.WithMetrics(m),
		slicecache.WithLogger(l),
	)
}

// ProvideDiscovery creates the options scanner.
func ProvideDiscovery(cfg *config.Config, l *applogger.Logger) *discovery.Service {
	return discovery.NewService(cfg.Archive.Root, cfg.Discovery.SampleDate, cfg.Discovery.Symbols, l)
}

// ProvideAuditSink creates the request audit backend selected by audit.backend.
func ProvideAuditSink(cfg *config.Config, l *applogger.Logger, conn *pkgcache.RedisConn) (repository.AuditSink, error) {
	a := cfg.Audit
	switch a.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(pkgkafka.WriterConfig{
			Brokers:      a.Kafka.Brokers,
			Topic:        a.Kafka.Topic,
			RequiredAcks: a.Kafka.RequiredAcks,
			Compression:  a.Kafka.Compression,
			WriteTimeout: a.Timeout,
			BatchTimeout: a.Kafka.BatchTimeout,
			Async:        a.Kafka.Async,
			KeyAffinity:  true,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		l.Info("audit to kafka", applogger.Strings("brokers", a.Kafka.Brokers), applogger.String("topic", producer.Topic()))
		return internalrepo.NewKafkaAuditSink(producer), nil

	case "clickhouse":
		ch := a.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithAddr(ch.Host, ch.Port),
			pkgch.WithAuth(ch.Database, ch.User, ch.Password),
			pkgch.WithDialTimeout(ch.DialTimeout),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithAsyncInsert(ch.AsyncInsert, false),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		sink, err := internalrepo.NewCHAuditSink(client, ch.Database+"."+ch.Table)
		if err != nil {
			_ = client.Close()
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + ch.Database}, sink.Schema()...)
		if err := client.InitSchema(ctx, stmts); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		l.Info("audit to clickhouse", applogger.String("table", ch.Database+"."+ch.Table))
		return sink, nil

	case "redis":
		client, err := conn.Client(context.Background())
		if err != nil {
			return nil, fmt.Errorf("redis audit: %w", err)
		}
		l.Info("audit to redis", applogger.String("key", a.Redis.Key))
		return internalrepo.NewRedisAuditSink(client, a.Redis.Key, a.Redis.MaxLen), nil

	default:
		return internalrepo.NopAuditSink{}, nil
	}
}

// ProvidePlotUseCase creates the comparison use case.
func ProvidePlotUseCase(
	cfg *config.Config,
	slices *slicecache.SliceCache,
	audit repository.AuditSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PlotUseCase {
	return usecase.NewPlotUseCase(slices,
		usecase.WithLoadWorkers(cfg.Engine.LoadWorkers),
		usecase.WithMaxDays(cfg.Engine.MaxDays),
		usecase.WithAuditSink(audit, cfg.Audit.Timeout),
		usecase.WithPlotMetrics(m),
		usecase.WithPlotLogger(l),
	)
}

// ProvideOptionsUseCase creates the options use case.
func ProvideOptionsUseCase(d *discovery.Service) *usecase.OptionsUseCase {
	return usecase.NewOptionsUseCase(d)
}

// ProvideLimiter creates the per-client token bucket store.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvidePlotHandler creates the HTTP handler for /api routes.
func ProvidePlotHandler(
	cfg *config.Config,
	l *applogger.Logger,
	plot *usecase.PlotUseCase,
	options *usecase.OptionsUseCase,
	limiter *ratelimit.Limiter,
) *api.PlotEchoHandler {
	return api.NewPlotEchoHandler(l, plot, options, cfg.Auth.JWTSecret, limiter, api.RateLimitConfig{
		Capacity:     cfg.Server.RateLimit.Capacity,
		RefillPerSec: cfg.Server.RateLimit.RefillPerSec,
	})
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.PlotEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithLogger(l),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithGzip(cfg.Server.Gzip),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetrics(metricsPath, prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	limiter *ratelimit.Limiter,
	tp *sdktrace.TracerProvider,
	store pkgcache.Service,
	audit repository.AuditSink,
	conn *pkgcache.RedisConn,
) *server.App {
	return server.New(cfg, l, srv, limiter,
		server.Resource{Name: "tracer", Close: tp.Shutdown},
		server.Resource{Name: "redis", Close: func(context.Context) error { return conn.Close() }},
		server.Resource{Name: "cache", Close: func(context.Context) error { return store.Close() }},
		server.Resource{Name: "audit", Close: func(context.Context) error { return audit.Close() }},
	)
}
