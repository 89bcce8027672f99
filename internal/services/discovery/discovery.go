package discovery

import (
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"DiffPlot/internal/domain/models"
	applogger "DiffPlot/pkg/logger"
)

// Columns of archive files that are not plottable fields.
var excludedColumns = map[string]bool{"id": true, "interval": true, "type": true}

// Fields without a derived pct-change variant.
var noPctChange = map[string]bool{"adjustment": true}

// Service lists the symbols, intervals and fields the UI can request, based
// on one sample day of the running archive.
type Service struct {
	root       string
	sampleDate string
	symbols    []string
	l          *applogger.Logger
}

func NewService(root, sampleDate string, symbols []string, l *applogger.Logger) *Service {
	if l == nil {
		l = applogger.Nop()
	}
	return &Service{root: root, sampleDate: sampleDate, symbols: symbols, l: l}
}

// SampleDir is the directory scanned for options.
func (s *Service) SampleDir() string {
	year := s.sampleDate
	if len(year) > 4 {
		year = year[:4]
	}
	return filepath.Join(s.root, string(models.SourceRunning), year, s.sampleDate)
}

// Options scans the sample directory. A missing directory yields the
// configured symbols only.
func (s *Service) Options(ctx context.Context) (models.Options, error) {
	symbols := make(map[string]struct{}, len(s.symbols))
	for _, sym := range s.symbols {
		symbols[sym] = struct{}{}
	}
	intervals := make(map[string]struct{})
	var fields []string
	headerRead := false

	dir := s.SampleDir()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		fn, ok := ParseFileName(d.Name())
		if !ok {
			return nil
		}
		symbols[fn.Symbol] = struct{}{}
		intervals[fn.Interval] = struct{}{}
		if !headerRead {
			if cols, err := readHeader(path); err == nil {
				fields = plottable(cols)
				headerRead = true
			} else {
				s.l.Warn("sample header unreadable", applogger.String("path", path), applogger.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.Options{}, err
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.l.Warn("sample directory scan failed", applogger.String("dir", dir), applogger.Error(err))
		}
	}

	if fields == nil {
		fields = []string{}
	}
	return models.Options{
		Symbols:   sortedKeys(symbols),
		Intervals: sortedKeys(intervals),
		Fields:    fields,
	}, nil
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.Read()
}

// plottable drops the timestamp column and bookkeeping columns, sorts the
// rest and appends their pct-change variants.
func plottable(header []string) []string {
	if len(header) == 0 {
		return []string{}
	}
	base := make([]string, 0, len(header))
	for _, col := range header[1:] {
		col = strings.TrimSpace(col)
		if col == "" || excludedColumns[col] {
			continue
		}
		base = append(base, col)
	}
	sort.Strings(base)

	out := append([]string(nil), base...)
	for _, col := range base {
		if !noPctChange[col] {
			out = append(out, col+models.PctChangeSuffix)
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
