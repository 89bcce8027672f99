package server

import (
	"context"
	"errors"
	"time"

	"DiffPlot/pkg/config"
	xhttp "DiffPlot/pkg/http"
	applogger "DiffPlot/pkg/logger"
)

// Resource is a dependency released on shutdown, in reverse registration order.
type Resource struct {
	Name  string
	Close func(ctx context.Context) error
}

// Sweeper runs a periodic background cleanup until stop is closed.
type Sweeper interface {
	Run(interval, idle time.Duration, stop <-chan struct{})
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	sweeper    Sweeper
	resources  []Resource
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, sweeper Sweeper, resources ...Resource) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, httpServer: srv, sweeper: sweeper, resources: resources}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	stop := make(chan struct{})
	if a.sweeper != nil {
		go a.sweeper.Run(time.Minute, 10*time.Minute, stop)
	}

	if err := a.httpServer.Start(); err != nil {
		close(stop)
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("diffplot started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("archive", a.cfg.Archive.Root),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.String("audit", a.cfg.Audit.Backend),
	)

	<-ctx.Done()
	close(stop)
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.Close(ctx); err != nil {
			a.l.Warn("resource close error", applogger.String("resource", r.Name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
