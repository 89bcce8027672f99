package frames

import (
	"math"
	"time"

	"DiffPlot/internal/domain/models"
	"DiffPlot/internal/services/stats"
)

// Diff returns running minus history for the fields both frames carry, on the
// union of their indexes. A cell is NaN unless both sides have a value there.
func Diff(running, history models.Frame) models.Frame {
	if running.Empty() || history.Empty() {
		return models.Frame{}
	}
	var fields []string
	for _, field := range running.Fields {
		if history.Has(field) {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return models.Frame{}
	}

	index := Timeline(running, history)
	rpos, hpos := indexPositions(running.Index), indexPositions(history.Index)
	out := models.Frame{Index: index, Fields: fields, Columns: make(map[string][]float64, len(fields))}
	for _, field := range fields {
		rc, hc := running.Column(field), history.Column(field)
		col := nanColumn(len(index))
		for n, t := range index {
			ri, rok := rpos[t.UnixNano()]
			hi, hok := hpos[t.UnixNano()]
			if rok && hok {
				col[n] = rc[ri] - hc[hi]
			}
		}
		out.Columns[field] = col
	}
	return out
}

// Timeline is the sorted, de-duplicated union of the frames' indexes.
func Timeline(frames ...models.Frame) []time.Time {
	var all []time.Time
	for _, f := range frames {
		all = append(all, f.Index...)
	}
	return uniqueSorted(all)
}

// Reindex places a column on the timeline: exact timestamp matches, carried
// forward across gaps, 0 before the first value. Non-finite values repeat
// the last finite one.
func Reindex(f models.Frame, field string, timeline []time.Time) []float64 {
	out := make([]float64, len(timeline))
	col := f.Column(field)
	if col == nil {
		return out
	}
	pos := indexPositions(f.Index)

	last := math.NaN()
	lastFinite := 0.0
	for n, t := range timeline {
		v := math.NaN()
		if i, ok := pos[t.UnixNano()]; ok {
			v = col[i]
		}
		if math.IsNaN(v) {
			v = last
		} else {
			last = v
		}
		if math.IsInf(v, 0) {
			v = lastFinite
		}
		v = stats.Sanitize(v)
		lastFinite = v
		out[n] = v
	}
	return out
}

// Group is one labelled frame to be aligned.
type Group struct {
	Name  string
	Frame models.Frame
	// Always emits a series for every field, zero-filled when the column is absent.
	Always bool
}

// Align reindexes every group onto the timeline and returns series labelled
// "<group>_<field>", field by field in group order.
func Align(groups []Group, fields []string, timeline []time.Time) []models.Series {
	series := make([]models.Series, 0, len(groups)*len(fields))
	for _, field := range fields {
		for _, g := range groups {
			if !g.Always && !g.Frame.Has(field) {
				continue
			}
			series = append(series, models.Series{
				Label:  g.Name + "_" + field,
				Values: Reindex(g.Frame, field, timeline),
			})
		}
	}
	return series
}
