package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
	applogger "DiffPlot/pkg/logger"
	"DiffPlot/pkg/tracing"
	"DiffPlot/pkg/util"
)

// CSVSliceLoader implements SliceLoader over the per-day CSV archive:
//
//	<root>/<source>/<yyyy>/<yyyymmdd>/<symbol>_<yyyymmdd>_<interval>.csv
//
// with a fallback to <root>/<indexPrefix><source>/... for index symbols.
type CSVSliceLoader struct {
	root        string
	indexPrefix string
	l           *applogger.Logger
	tracer      trace.Tracer
}

var _ domrepo.SliceLoader = (*CSVSliceLoader)(nil)

func NewCSVSliceLoader(root, indexPrefix string, l *applogger.Logger) *CSVSliceLoader {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVSliceLoader{
		root:        root,
		indexPrefix: indexPrefix,
		l:           l,
		tracer:      tracing.Tracer("DiffPlot/repository/csv"),
	}
}

// ResolvePath returns the primary path when it exists, otherwise the index
// path whether or not it exists.
func (r *CSVSliceLoader) ResolvePath(key models.SliceKey) string {
	name := fmt.Sprintf("%s_%s_%s.csv", key.Symbol, key.Date, key.Interval)
	primary := filepath.Join(r.root, string(key.Source), key.Year(), key.Date, name)
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	return filepath.Join(r.root, r.indexPrefix+string(key.Source), key.Year(), key.Date, name)
}

func (r *CSVSliceLoader) ModTime(key models.SliceKey) int64 {
	fi, err := os.Stat(r.ResolvePath(key))
	if err != nil || fi.IsDir() {
		return models.AbsentModTime
	}
	return fi.ModTime().UnixNano()
}

// Load reads one field. Absence of the file or the column, and any read
// failure, yield an empty slice with a nil error.
func (r *CSVSliceLoader) Load(ctx context.Context, key models.SliceKey) (models.FieldSlice, error) {
	_, span := r.tracer.Start(ctx, "slice.load", trace.WithAttributes(
		attribute.String("slice.key", key.String()),
	))
	defer span.End()

	empty := models.FieldSlice{Field: key.Field}
	base, derived := key.BaseField()

	path := r.ResolvePath(key)
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.l.Warn("slice open failed", applogger.String("path", path), applogger.Error(err))
		}
		span.SetAttributes(attribute.Bool("slice.found", false))
		return empty, nil
	}
	defer f.Close()

	times, values, skipped, err := readColumn(f, base)
	if skipped > 0 {
		r.l.Warn("slice rows with unparsable timestamps skipped",
			applogger.String("path", path),
			applogger.Int("skipped", skipped),
			applogger.Int("kept", len(times)),
		)
	}
	if err != nil {
		r.l.Warn("slice read failed",
			applogger.String("path", path),
			applogger.String("field", base),
			applogger.Error(err),
		)
		span.RecordError(err)
		return empty, nil
	}
	span.SetAttributes(attribute.Bool("slice.found", true), attribute.Int("slice.rows", len(times)))
	if len(times) == 0 {
		return empty, nil
	}

	sortByTime(times, values)
	if derived {
		values = PctChange(values)
	}
	return models.FieldSlice{Field: key.Field, Times: times, Values: values}, nil
}

// readColumn returns the timestamp column and the named column, plus the
// number of rows dropped for an unparsable timestamp. A header without the
// column yields no rows and no error.
func readColumn(rd io.Reader, column string) ([]time.Time, []float64, int, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, 0, nil
		}
		return nil, nil, 0, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if i > 0 && h == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, nil, 0, nil
	}

	times := make([]time.Time, 0, 1024)
	values := make([]float64, 0, 1024)
	skipped := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, skipped, fmt.Errorf("read row: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		ts, ok := util.ParseTimestamp(rec[0])
		if !ok {
			skipped++
			continue
		}
		v := math.NaN()
		if col < len(rec) {
			if parsed, ok := util.ParseFloatCell(rec[col]); ok {
				v = parsed
			}
		}
		times = append(times, ts)
		values = append(values, v)
	}
	return times, values, skipped, nil
}

type byTime struct {
	t []time.Time
	v []float64
}

func (b byTime) Len() int           { return len(b.t) }
func (b byTime) Less(i, j int) bool { return b.t[i].Before(b.t[j]) }
func (b byTime) Swap(i, j int) {
	b.t[i], b.t[j] = b.t[j], b.t[i]
	b.v[i], b.v[j] = b.v[j], b.v[i]
}

func sortByTime(times []time.Time, values []float64) {
	bt := byTime{t: times, v: values}
	if !sort.IsSorted(bt) {
		sort.Stable(bt)
	}
}

// PctChange returns the fractional change between consecutive values, with
// missing (NaN) values padded from the last present one first. The first
// element, missing positions and 0/0 are 0; infinities are left for the
// caller to sanitize.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if c := v/prev - 1; !math.IsNaN(c) {
			out[i] = c
		}
		prev = v
	}
	return out
}
