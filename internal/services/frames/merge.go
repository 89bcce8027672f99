package frames

import (
	"math"
	"sort"
	"time"

	"DiffPlot/internal/domain/models"
)

// MergeDay outer-joins the slices of one day on timestamp. Empty slices are
// dropped; a timestamp repeated inside one slice keeps its first value, and a
// field repeated across slices keeps the first slice.
func MergeDay(slices []models.FieldSlice) models.Frame {
	f := models.Frame{Columns: make(map[string][]float64)}

	kept := make([]models.FieldSlice, 0, len(slices))
	for _, s := range slices {
		if s.Empty() || f.Has(s.Field) {
			continue
		}
		f.Columns[s.Field] = nil
		f.Fields = append(f.Fields, s.Field)
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return models.Frame{}
	}

	all := make([]time.Time, 0, kept[0].Len())
	for _, s := range kept {
		all = append(all, s.Times...)
	}
	f.Index = uniqueSorted(all)
	pos := indexPositions(f.Index)

	for _, s := range kept {
		col := nanColumn(len(f.Index))
		seen := make([]bool, len(f.Index))
		for i, t := range s.Times {
			p := pos[t.UnixNano()]
			if seen[p] {
				continue
			}
			seen[p] = true
			col[p] = s.Values[i]
		}
		f.Columns[s.Field] = col
	}
	return f
}

type row struct {
	t   time.Time
	day int
	i   int
}

// Stack concatenates day frames into one series frame ordered by timestamp.
// Rows colliding on an exact timestamp keep the first one seen.
func Stack(days []models.Frame) models.Frame {
	out := models.Frame{Columns: make(map[string][]float64)}
	var rows []row
	for d, day := range days {
		if day.Empty() {
			continue
		}
		for _, field := range day.Fields {
			if _, ok := out.Columns[field]; !ok {
				out.Columns[field] = nil
				out.Fields = append(out.Fields, field)
			}
		}
		for i, t := range day.Index {
			rows = append(rows, row{t: t, day: d, i: i})
		}
	}
	if len(rows) == 0 {
		return models.Frame{}
	}

	sort.SliceStable(rows, func(a, b int) bool { return rows[a].t.Before(rows[b].t) })
	uniq := rows[:0]
	for _, r := range rows {
		if len(uniq) > 0 && uniq[len(uniq)-1].t.Equal(r.t) {
			continue
		}
		uniq = append(uniq, r)
	}

	out.Index = make([]time.Time, len(uniq))
	for _, field := range out.Fields {
		out.Columns[field] = nanColumn(len(uniq))
	}
	for n, r := range uniq {
		out.Index[n] = r.t
		day := days[r.day]
		for _, field := range day.Fields {
			out.Columns[field][n] = day.Columns[field][r.i]
		}
	}
	return out
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

func indexPositions(index []time.Time) map[int64]int {
	pos := make(map[int64]int, len(index))
	for i, t := range index {
		if _, ok := pos[t.UnixNano()]; !ok {
			pos[t.UnixNano()] = i
		}
	}
	return pos
}

// uniqueSorted returns the distinct timestamps of ts in increasing order.
func uniqueSorted(ts []time.Time) []time.Time {
	if len(ts) == 0 {
		return nil
	}
	sorted := make([]time.Time, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
