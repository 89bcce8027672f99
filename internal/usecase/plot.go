package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
	"DiffPlot/internal/services/frames"
	"DiffPlot/internal/services/stats"
	applogger "DiffPlot/pkg/logger"
	"DiffPlot/pkg/metrics"
	"DiffPlot/pkg/tracing"
	"DiffPlot/pkg/util"
)

// ErrInvalidRequest marks requests rejected before any archive access.
var ErrInvalidRequest = errors.New("invalid plot request")

// PlotUseCase builds the comparison of the history and running archives for
// one symbol, interval and field set over a date range.
type PlotUseCase struct {
	slices       domrepo.SliceSource
	audit        domrepo.AuditSink
	m            domrepo.Metrics
	l            *applogger.Logger
	tracer       trace.Tracer
	workers      int
	maxDays      int
	auditTimeout time.Duration
}

// PlotOption configures a PlotUseCase.
type PlotOption func(*PlotUseCase)

func WithLoadWorkers(n int) PlotOption {
	return func(uc *PlotUseCase) {
		if n > 0 {
			uc.workers = n
		}
	}
}

// WithMaxDays bounds the number of calendar days one request may span.
func WithMaxDays(n int) PlotOption {
	return func(uc *PlotUseCase) {
		if n > 0 {
			uc.maxDays = n
		}
	}
}

func WithAuditSink(s domrepo.AuditSink, timeout time.Duration) PlotOption {
	return func(uc *PlotUseCase) {
		if s != nil {
			uc.audit = s
		}
		if timeout > 0 {
			uc.auditTimeout = timeout
		}
	}
}

func WithPlotMetrics(m domrepo.Metrics) PlotOption {
	return func(uc *PlotUseCase) {
		if m != nil {
			uc.m = m
		}
	}
}

func WithPlotLogger(l *applogger.Logger) PlotOption {
	return func(uc *PlotUseCase) {
		if l != nil {
			uc.l = l
		}
	}
}

func NewPlotUseCase(slices domrepo.SliceSource, opts ...PlotOption) *PlotUseCase {
	uc := &PlotUseCase{
		slices:       slices,
		audit:        nopSink{},
		m:            metrics.Nop{},
		l:            applogger.Nop(),
		tracer:       tracing.Tracer("DiffPlot/usecase/plot"),
		workers:      8,
		maxDays:      366,
		auditTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type PlotParams struct {
	Symbol   string
	Interval string
	Fields   []string
	Start    string // yyyymmdd
	End      string // yyyymmdd
}

// Plot loads every (source, day, field) slice through the cache, merges and
// aligns them and computes statistics. A start after the end yields an empty
// response.
func (uc *PlotUseCase) Plot(ctx context.Context, p PlotParams) (*models.PlotResponse, error) {
	began := time.Now()

	fields := uniqueFields(p.Fields)
	if p.Symbol == "" || p.Interval == "" || len(fields) == 0 {
		return nil, fmt.Errorf("%w: symbol, interval and fields are required", ErrInvalidRequest)
	}
	start, err := util.ParseDate(p.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidRequest, err)
	}
	end, err := util.ParseDate(p.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidRequest, err)
	}
	if days := util.DaysBetween(start, end); days > uc.maxDays {
		return nil, fmt.Errorf("%w: range spans %d days, limit is %d", ErrInvalidRequest, days, uc.maxDays)
	}
	dates := util.DateRange(start, end)

	ctx, span := uc.tracer.Start(ctx, "plot", trace.WithAttributes(
		attribute.String("plot.symbol", p.Symbol),
		attribute.String("plot.interval", p.Interval),
		attribute.StringSlice("plot.fields", fields),
		attribute.Int("plot.days", len(dates)),
	))
	defer span.End()

	loaded := uc.loadAll(ctx, p.Symbol, p.Interval, dates, fields)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := stackSource(loaded[models.SourceHistory])
	running := stackSource(loaded[models.SourceRunning])
	diff := frames.Diff(running, history)
	timeline := frames.Timeline(history, running, diff)

	series := frames.Align([]frames.Group{
		{Name: models.GroupHistory, Frame: history, Always: true},
		{Name: models.GroupRunning, Frame: running, Always: true},
		{Name: models.GroupDiff, Frame: diff},
	}, fields, timeline)

	timestamps := make([]string, len(timeline))
	for i, t := range timeline {
		timestamps[i] = t.Format(models.TimestampLayout)
	}

	resp := &models.PlotResponse{
		Timestamps: timestamps,
		Series:     series,
		Stats:      stats.Compute(history, running, diff, fields),
	}

	elapsed := time.Since(began)
	span.SetAttributes(attribute.Int("plot.points", len(timeline)))
	uc.m.RecordLatency("plot", elapsed.Seconds())
	uc.m.RecordPoints("plot", len(timeline))
	uc.l.Info("plot served",
		applogger.String("symbol", p.Symbol),
		applogger.String("interval", p.Interval),
		applogger.Strings("fields", fields),
		applogger.String("start", p.Start),
		applogger.String("end", p.End),
		applogger.Int("points", len(timeline)),
		applogger.Int("series", len(series)),
		applogger.Duration("elapsed_ms", elapsed),
	)

	uc.record(ctx, &models.AuditEvent{
		ID:         uuid.NewString(),
		Symbol:     p.Symbol,
		Interval:   p.Interval,
		Fields:     fields,
		Start:      p.Start,
		End:        p.End,
		Points:     len(timeline),
		Series:     len(series),
		DurationMs: elapsed.Milliseconds(),
		At:         time.Now().UTC(),
	})
	return resp, nil
}

// loadAll fetches every slice with a bounded number of concurrent loads. The
// result is indexed [source][day][field]; a failed key is an empty slice.
func (uc *PlotUseCase) loadAll(ctx context.Context, symbol, interval string, dates, fields []string) map[models.Source][][]models.FieldSlice {
	out := make(map[models.Source][][]models.FieldSlice, len(models.Sources))
	for _, src := range models.Sources {
		days := make([][]models.FieldSlice, len(dates))
		for d := range days {
			days[d] = make([]models.FieldSlice, len(fields))
		}
		out[src] = days
	}

	sem := make(chan struct{}, uc.workers)
	var wg sync.WaitGroup
	for _, src := range models.Sources {
		for d, date := range dates {
			for f, field := range fields {
				key := models.SliceKey{Symbol: symbol, Interval: interval, Date: date, Field: field, Source: src}
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					wg.Wait()
					return out
				}
				wg.Add(1)
				go func(src models.Source, d, f int, key models.SliceKey) {
					defer wg.Done()
					defer func() { <-sem }()
					s, err := uc.slices.GetOrLoad(ctx, key)
					if err != nil {
						uc.m.RecordError("slice_load")
						uc.l.Warn("slice load failed", applogger.String("key", key.String()), applogger.Error(err))
						s = models.FieldSlice{Field: key.Field}
					}
					out[src][d][f] = s
				}(src, d, f, key)
			}
		}
	}
	wg.Wait()
	return out
}

func (uc *PlotUseCase) record(ctx context.Context, ev *models.AuditEvent) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.auditTimeout)
	defer cancel()
	if err := uc.audit.Record(actx, ev); err != nil {
		uc.m.RecordError("audit")
		uc.l.Warn("audit record failed", applogger.String("id", ev.ID), applogger.Error(err))
	}
}

func stackSource(days [][]models.FieldSlice) models.Frame {
	merged := make([]models.Frame, len(days))
	for d, slices := range days {
		merged[d] = frames.MergeDay(slices)
	}
	return frames.Stack(merged)
}

// uniqueFields drops blanks and repeats, keeping the first occurrence.
func uniqueFields(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

type nopSink struct{}

func (nopSink) Record(context.Context, *models.AuditEvent) error { return nil }
func (nopSink) Close() error                                    { return nil }
