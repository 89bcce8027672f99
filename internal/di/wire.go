//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"DiffPlot/pkg/config"
	"DiffPlot/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideTracerProvider,

		// Storage
		ProvideRedisConn,
		ProvideSliceLoader,
		ProvideCacheStore,
		ProvideSliceCache,
		ProvideDiscovery,
		ProvideAuditSink,

		// Use cases
		ProvidePlotUseCase,
		ProvideOptionsUseCase,

		// HTTP
		ProvideLimiter,
		ProvidePlotHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
