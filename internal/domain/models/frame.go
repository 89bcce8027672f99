package models

import (
	"math"
	"time"
)

// Frame is a set of columns sharing one timestamp index. A NaN cell means the
// column has no value at that timestamp.
type Frame struct {
	Index   []time.Time
	Fields  []string
	Columns map[string][]float64
}

// Empty reports whether the frame has no rows or no columns.
func (f Frame) Empty() bool {
	return len(f.Index) == 0 || len(f.Columns) == 0
}

// Has reports whether the frame carries a column for field.
func (f Frame) Has(field string) bool {
	_, ok := f.Columns[field]
	return ok
}

// Column returns the column for field, or nil.
func (f Frame) Column(field string) []float64 {
	return f.Columns[field]
}

// Present returns the non-NaN values of a column.
func (f Frame) Present(field string) []float64 {
	col := f.Columns[field]
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
