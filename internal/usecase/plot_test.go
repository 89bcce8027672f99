package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"DiffPlot/internal/domain/models"
	"DiffPlot/internal/repository"
	slicecache "DiffPlot/internal/service/cache"
	pkgcache "DiffPlot/pkg/cache"
)

func writeDay(t *testing.T, root, source, symbol, date, interval string, rows map[string]float64) {
	t.Helper()
	dir := filepath.Join(root, source, date[:4], date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	b.WriteString("timestamp,open,close\n")
	for ts, v := range rows {
		fmt.Fprintf(&b, "%s,1,%g\n", ts, v)
	}
	path := filepath.Join(dir, symbol+"_"+date+"_"+interval+".csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newPlot(t *testing.T, root string, opts ...PlotOption) *PlotUseCase {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	loader := repository.NewCSVSliceLoader(root, "index_", nil)
	return NewPlotUseCase(slicecache.NewSliceCache(store, loader), opts...)
}

func seriesByLabel(resp *models.PlotResponse) map[string][]float64 {
	out := make(map[string][]float64, len(resp.Series))
	for _, s := range resp.Series {
		out[s.Label] = s.Values
	}
	return out
}

func TestPlotAcrossTwoDays(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root, "history", "SPX.CBOE", "20250714", "1m", map[string]float64{
		"2025-07-14 09:30:00": 100, "2025-07-14 09:31:00": 101, "2025-07-14 09:32:00": 103,
	})
	writeDay(t, root, "history", "SPX.CBOE", "20250715", "1m", map[string]float64{
		"2025-07-15 09:30:00": 104, "2025-07-15 09:31:00": 102,
	})
	writeDay(t, root, "running", "SPX.CBOE", "20250714", "1m", map[string]float64{
		"2025-07-14 09:30:00": 100.5, "2025-07-14 09:32:00": 103.5, "2025-07-14 09:33:00": 104,
	})
	writeDay(t, root, "running", "SPX.CBOE", "20250715", "1m", map[string]float64{
		"2025-07-15 09:30:00": 104.2, "2025-07-15 09:31:00": 101.9,
	})

	uc := newPlot(t, root)
	resp, err := uc.Plot(context.Background(), PlotParams{
		Symbol: "SPX.CBOE", Interval: "1m", Fields: []string{"close"}, Start: "20250714", End: "20250715",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Timestamps) != 6 {
		t.Fatalf("timestamps %v", resp.Timestamps)
	}
	if resp.Timestamps[0] != "2025-07-14 09:30:00" || resp.Timestamps[5] != "2025-07-15 09:31:00" {
		t.Fatalf("timestamps must span both days: %v", resp.Timestamps)
	}

	byLabel := seriesByLabel(resp)
	for _, label := range []string{"history_close", "running_close", "diff_close"} {
		vals, ok := byLabel[label]
		if !ok {
			t.Fatalf("missing series %s in %v", label, resp.Series)
		}
		if len(vals) != len(resp.Timestamps) {
			t.Fatalf("%s has %d values for %d timestamps", label, len(vals), len(resp.Timestamps))
		}
	}

	// 09:31 exists only in history; running carries 100.5 forward.
	if got := byLabel["running_close"][1]; got != 100.5 {
		t.Fatalf("carry-forward running[1]=%v", got)
	}
	if got := byLabel["diff_close"][0]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("diff[0]=%v", got)
	}

	corr, ok := resp.Stats.Corr["close"]
	if !ok || math.IsNaN(corr) || math.IsInf(corr, 0) {
		t.Fatalf("corr %v present=%v", corr, ok)
	}
	if resp.Stats.History.Count["close"] != 5 || resp.Stats.Running.Count["close"] != 5 {
		t.Fatalf("counts %v %v", resp.Stats.History.Count, resp.Stats.Running.Count)
	}
	if resp.Stats.Diff.Count["close"] != 4 {
		t.Fatalf("diff count %v", resp.Stats.Diff.Count)
	}
}

func TestPlotWithoutFiles(t *testing.T) {
	uc := newPlot(t, t.TempDir())
	resp, err := uc.Plot(context.Background(), PlotParams{
		Symbol: "SPX.CBOE", Interval: "1m", Fields: []string{"close"}, Start: "20250714", End: "20250715",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Timestamps) != 0 {
		t.Fatalf("timestamps %v", resp.Timestamps)
	}
	for _, s := range resp.Series {
		if len(s.Values) != 0 {
			t.Fatalf("series %s should be empty: %v", s.Label, s.Values)
		}
		if strings.HasPrefix(s.Label, models.GroupDiff) {
			t.Fatalf("unexpected diff series %s", s.Label)
		}
	}
	b, _ := json.Marshal(resp.Stats)
	if string(b) != "{}" {
		t.Fatalf("stats %s", b)
	}
}

func TestPlotHistoryMissing(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root, "running", "SPX.CBOE", "20250714", "1m", map[string]float64{
		"2025-07-14 09:30:00": 1, "2025-07-14 09:31:00": 2,
	})
	uc := newPlot(t, root)
	resp, err := uc.Plot(context.Background(), PlotParams{
		Symbol: "SPX.CBOE", Interval: "1m", Fields: []string{"close"}, Start: "20250714", End: "20250714",
	})
	if err != nil {
		t.Fatal(err)
	}
	byLabel := seriesByLabel(resp)
	if _, ok := byLabel["diff_close"]; ok {
		t.Fatal("diff series must be absent when history is empty")
	}
	if run := byLabel["running_close"]; len(run) != 2 || run[0] != 1 || run[1] != 2 {
		t.Fatalf("running %v", run)
	}
	if resp.Stats.History != nil || resp.Stats.Corr != nil || resp.Stats.Running == nil {
		t.Fatalf("stats %+v", resp.Stats)
	}
}

func TestPlotInvertedRangeIsEmpty(t *testing.T) {
	uc := newPlot(t, t.TempDir())
	resp, err := uc.Plot(context.Background(), PlotParams{
		Symbol: "SPX.CBOE", Interval: "1m", Fields: []string{"close"}, Start: "20250715", End: "20250714",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Timestamps) != 0 {
		t.Fatalf("timestamps %v", resp.Timestamps)
	}
}

func TestPlotRejectsBadRequests(t *testing.T) {
	uc := newPlot(t, t.TempDir(), WithMaxDays(7))
	tests := []struct {
		name string
		p    PlotParams
	}{
		{"bad start", PlotParams{Symbol: "S", Interval: "1m", Fields: []string{"close"}, Start: "20251399", End: "20251401"}},
		{"short end", PlotParams{Symbol: "S", Interval: "1m", Fields: []string{"close"}, Start: "20250101", End: "202501"}},
		{"no fields", PlotParams{Symbol: "S", Interval: "1m", Fields: []string{""}, Start: "20250101", End: "20250101"}},
		{"too many days", PlotParams{Symbol: "S", Interval: "1m", Fields: []string{"close"}, Start: "20250101", End: "20250108"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uc.Plot(context.Background(), tt.p); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("want ErrInvalidRequest, got %v", err)
			}
		})
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []*models.AuditEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func TestPlotRecordsAudit(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root, "running", "SPX.CBOE", "20250714", "1m", map[string]float64{"2025-07-14 09:30:00": 1})
	sink := &recordingSink{err: errors.New("sink down")}
	uc := newPlot(t, root, WithAuditSink(sink, 0))

	_, err := uc.Plot(context.Background(), PlotParams{
		Symbol: "SPX.CBOE", Interval: "1m", Fields: []string{"close", "close"}, Start: "20250714", End: "20250714",
	})
	if err != nil {
		t.Fatalf("audit failures must not surface: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("events %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.ID == "" || ev.Symbol != "SPX.CBOE" || ev.Points != 1 || len(ev.Fields) != 1 {
		t.Fatalf("event %+v", ev)
	}
}

type flakySource struct{}

func (flakySource) GetOrLoad(_ context.Context, key models.SliceKey) (models.FieldSlice, error) {
	if key.Source == models.SourceHistory {
		return models.FieldSlice{}, errors.New("disk error")
	}
	return models.FieldSlice{Field: key.Field}, nil
}

func TestPlotToleratesFailedSlices(t *testing.T) {
	uc := NewPlotUseCase(flakySource{}, WithLoadWorkers(2))
	resp, err := uc.Plot(context.Background(), PlotParams{
		Symbol: "SPX.CBOE", Interval: "1m", Fields: []string{"close", "open"}, Start: "20250714", End: "20250716",
	})
	if err != nil {
		t.Fatalf("failed keys must not abort: %v", err)
	}
	if len(resp.Series) != 4 {
		t.Fatalf("series %+v", resp.Series)
	}
}
