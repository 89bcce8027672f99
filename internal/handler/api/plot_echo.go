package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"DiffPlot/internal/domain/models"
	"DiffPlot/internal/usecase"
	xhttp "DiffPlot/pkg/http"
	"DiffPlot/pkg/http/middleware"
	xlogger "DiffPlot/pkg/logger"
)

// RateLimitConfig sizes the per-client bucket of the plot endpoint.
type RateLimitConfig struct {
	Capacity     float64
	RefillPerSec float64
}

// PlotEchoHandler serves the comparison endpoints.
type PlotEchoHandler struct {
	logger    *xlogger.Logger
	plot      *usecase.PlotUseCase
	options   *usecase.OptionsUseCase
	jwtSecret string
	limiter   middleware.Allower
	rl        RateLimitConfig
}

func NewPlotEchoHandler(
	logger *xlogger.Logger,
	plot *usecase.PlotUseCase,
	options *usecase.OptionsUseCase,
	jwtSecret string,
	limiter middleware.Allower,
	rl RateLimitConfig,
) *PlotEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PlotEchoHandler{
		logger:    logger,
		plot:      plot,
		options:   options,
		jwtSecret: jwtSecret,
		limiter:   limiter,
		rl:        rl,
	}
}

func (h *PlotEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", middleware.JWT(h.jwtSecret))
	g.GET("/get-options", h.GetOptions)
	g.POST("/get-plot", h.GetPlot, middleware.RateLimit(h.limiter, h.rl.Capacity, h.rl.RefillPerSec))
}

// GetOptions lists symbols, intervals and fields available in the archive.
func (h *PlotEchoHandler) GetOptions(c echo.Context) error {
	opts, err := h.options.GetOptions(c.Request().Context())
	if err != nil {
		h.logger.Error("options usecase error", xlogger.Error(err))
		return xhttp.WriteError(c, xhttp.Internal("failed to list options", err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.WriteRaw(c, opts)
}

// GetPlot returns the aligned history, running and diff series with stats.
func (h *PlotEchoHandler) GetPlot(c echo.Context) error {
	req := &models.PlotRequest{}
	if errs := xhttp.Bind(c, req); errs != nil {
		return xhttp.WriteFieldErrors(c, errs)
	}

	res, err := h.plot.Plot(c.Request().Context(), usecase.PlotParams{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Fields:   req.Fields,
		Start:    string(req.Start),
		End:      string(req.End),
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidRequest) {
			return xhttp.WriteError(c, xhttp.Invalid(err))
		}
		h.logger.Error("plot usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.WriteError(c, xhttp.Internal("failed to build plot", err))
	}
	return xhttp.WriteRaw(c, res)
}
