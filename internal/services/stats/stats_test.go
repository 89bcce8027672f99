package stats

import (
	"math"
	"testing"
	"time"

	"DiffPlot/internal/domain/models"
)

var t0 = time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)

func frame(field string, vals ...float64) models.Frame {
	idx := make([]time.Time, len(vals))
	for i := range vals {
		idx[i] = t0.Add(time.Duration(i) * time.Minute)
	}
	return models.Frame{
		Index:   idx,
		Fields:  []string{field},
		Columns: map[string][]float64{field: vals},
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{-2.5, -2.5},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%v)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	f := frame("close", 1, math.NaN(), 2, 3, 4)
	gs := Summarize(f, []string{"close", "open"})

	if gs.Count["close"] != 4 {
		t.Fatalf("count %v", gs.Count["close"])
	}
	if gs.Mean["close"] != 2.5 || gs.Max["close"] != 4 || gs.Min["close"] != 1 {
		t.Fatalf("mean/max/min %v %v %v", gs.Mean["close"], gs.Max["close"], gs.Min["close"])
	}
	if math.Abs(gs.Std["close"]-math.Sqrt(5.0/3.0)) > 1e-12 {
		t.Fatalf("sample std %v", gs.Std["close"])
	}
	for name, m := range map[string]map[string]float64{
		"mean": gs.Mean, "std": gs.Std, "max": gs.Max, "min": gs.Min, "count": gs.Count,
	} {
		v, ok := m["open"]
		if !ok || v != 0 {
			t.Fatalf("absent field %s=%v present=%v", name, v, ok)
		}
	}
}

func TestSummarizeDegenerate(t *testing.T) {
	gs := Summarize(frame("close", 7), []string{"close"})
	if gs.Std["close"] != 0 || gs.Count["close"] != 1 || gs.Mean["close"] != 7 {
		t.Fatalf("single value: %+v", gs)
	}

	gs = Summarize(frame("close", 1, math.Inf(1)), []string{"close"})
	if gs.Mean["close"] != 0 || gs.Max["close"] != 0 || gs.Std["close"] != 0 {
		t.Fatalf("infinite input must sanitize: %+v", gs)
	}
}

func TestCorrelateZeroVarianceIsExactlyZero(t *testing.T) {
	h := frame("close", 0.1, 0.1, 0.1, 0.1)
	r := frame("close", 1, 2, 3, 4)
	got := Correlate(h, r, []string{"close"})
	if v, ok := got["close"]; !ok || v != 0 {
		t.Fatalf("corr %v present=%v", v, ok)
	}
	got = Correlate(r, h, []string{"close"})
	if got["close"] != 0 {
		t.Fatalf("corr reversed %v", got["close"])
	}
}

func TestCorrelatePearson(t *testing.T) {
	h := frame("close", 1, 2, 3, 4)
	r := frame("close", 2, 4, 6, 8)
	if got := Correlate(h, r, []string{"close"})["close"]; math.Abs(got-1) > 1e-12 {
		t.Fatalf("perfect corr %v", got)
	}
	neg := frame("close", 8, 6, 4, 2)
	if got := Correlate(h, neg, []string{"close"})["close"]; math.Abs(got+1) > 1e-12 {
		t.Fatalf("negative corr %v", got)
	}
}

func TestCorrelateMatchesTimestamps(t *testing.T) {
	h := frame("close", 1, 2, 3, 100)
	r := models.Frame{
		Index:   []time.Time{t0, t0.Add(time.Minute), t0.Add(2 * time.Minute), t0.Add(time.Hour)},
		Fields:  []string{"close"},
		Columns: map[string][]float64{"close": {1, 2, 3, -50}},
	}
	if got := Correlate(h, r, []string{"close"})["close"]; math.Abs(got-1) > 1e-12 {
		t.Fatalf("unmatched rows must be ignored, corr %v", got)
	}
}

func TestCorrelateSkipsFieldsMissingFromEitherSide(t *testing.T) {
	h := frame("close", 1, 2, 3)
	r := frame("open", 1, 2, 3)
	if got := Correlate(h, r, []string{"close", "open"}); len(got) != 0 {
		t.Fatalf("want no keys, got %v", got)
	}
}

func TestCompute(t *testing.T) {
	h := frame("close", 1, 2, 3)
	r := frame("close", 2, 3, 5)
	var empty models.Frame

	ps := Compute(h, r, empty, []string{"close"})
	if ps.History == nil || ps.Running == nil {
		t.Fatal("history and running groups expected")
	}
	if ps.Diff != nil {
		t.Fatal("empty diff must be omitted")
	}
	if _, ok := ps.Corr["close"]; !ok {
		t.Fatal("corr expected")
	}

	ps = Compute(empty, r, empty, []string{"close"})
	if ps.History != nil || ps.Corr != nil || ps.Running == nil {
		t.Fatalf("history-less stats: %+v", ps)
	}

	ps = Compute(empty, empty, empty, []string{"close"})
	if ps.History != nil || ps.Running != nil || ps.Diff != nil || ps.Corr != nil {
		t.Fatalf("no data must produce no groups: %+v", ps)
	}
}
