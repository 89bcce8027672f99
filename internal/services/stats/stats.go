package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"DiffPlot/internal/domain/models"
)

// Sanitize maps NaN and ±Inf to 0. Every number leaving the engine passes
// through it.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Summarize computes mean, sample std, max, min and count of each field over
// the frame's non-NaN cells. A field without a column counts 0 and reports 0
// for everything else.
func Summarize(f models.Frame, fields []string) *models.GroupStats {
	gs := &models.GroupStats{
		Mean:  make(map[string]float64, len(fields)),
		Std:   make(map[string]float64, len(fields)),
		Max:   make(map[string]float64, len(fields)),
		Min:   make(map[string]float64, len(fields)),
		Count: make(map[string]float64, len(fields)),
	}
	for _, field := range fields {
		vals := f.Present(field)
		gs.Count[field] = float64(len(vals))
		if len(vals) == 0 {
			gs.Mean[field], gs.Std[field], gs.Max[field], gs.Min[field] = 0, 0, 0, 0
			continue
		}
		gs.Mean[field] = Sanitize(stat.Mean(vals, nil))
		gs.Std[field] = Sanitize(sampleStd(vals))
		gs.Max[field] = Sanitize(floats.Max(vals))
		gs.Min[field] = Sanitize(floats.Min(vals))
	}
	return gs
}

// sampleStd is the n-1 standard deviation; a single value has none and a
// constant column has exactly zero.
func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	if constant(vals) {
		return 0
	}
	return stat.StdDev(vals, nil)
}

func constant(vals []float64) bool {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

// Correlate returns the Pearson correlation of history and running per field,
// over rows whose timestamps match and where both cells are present. Fields
// missing from either frame are skipped. A side with zero deviation gives 0.
func Correlate(history, running models.Frame, fields []string) map[string]float64 {
	out := make(map[string]float64)
	pos := make(map[int64]int, len(history.Index))
	for i, t := range history.Index {
		pos[t.UnixNano()] = i
	}

	for _, field := range fields {
		if !history.Has(field) || !running.Has(field) {
			continue
		}
		if sampleStd(history.Present(field)) == 0 || sampleStd(running.Present(field)) == 0 {
			out[field] = 0
			continue
		}

		hc, rc := history.Column(field), running.Column(field)
		var xs, ys []float64
		for j, t := range running.Index {
			i, ok := pos[t.UnixNano()]
			if !ok || math.IsNaN(hc[i]) || math.IsNaN(rc[j]) {
				continue
			}
			xs = append(xs, hc[i])
			ys = append(ys, rc[j])
		}
		if len(xs) < 2 {
			out[field] = 0
			continue
		}
		out[field] = Sanitize(stat.Correlation(xs, ys, nil))
	}
	return out
}

// Compute assembles the statistics block of a plot response. Groups whose
// frame is empty are left out, and correlation needs both sources.
func Compute(history, running, diff models.Frame, fields []string) models.PlotStats {
	var ps models.PlotStats
	if !history.Empty() {
		ps.History = Summarize(history, fields)
	}
	if !running.Empty() {
		ps.Running = Summarize(running, fields)
	}
	if !diff.Empty() {
		ps.Diff = Summarize(diff, fields)
	}
	if !history.Empty() && !running.Empty() {
		ps.Corr = Correlate(history, running, fields)
	}
	return ps
}
