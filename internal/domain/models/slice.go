package models

import (
	"fmt"
	"strings"
	"time"
)

// Source names one of the two parallel archives.
type Source string

const (
	SourceHistory Source = "history"
	SourceRunning Source = "running"
)

// Sources lists archives in the order they are loaded and reported.
var Sources = []Source{SourceHistory, SourceRunning}

// PctChangeSuffix marks a field derived from the fractional change of its base column.
const PctChangeSuffix = "_pct_change"

// AbsentModTime is the modification time reported for a file that does not exist.
const AbsentModTime int64 = -1

// SliceKey identifies one loadable unit: one field of one day of one archive.
type SliceKey struct {
	Symbol   string
	Interval string
	Date     string // yyyymmdd
	Field    string
	Source   Source
}

func (k SliceKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", k.Symbol, k.Interval, k.Date, k.Field, k.Source)
}

// Year returns the yyyy partition of the key's date.
func (k SliceKey) Year() string {
	if len(k.Date) < 4 {
		return k.Date
	}
	return k.Date[:4]
}

// BaseField strips the pct-change suffix, returning the column to read and
// whether the field is derived.
func (k SliceKey) BaseField() (string, bool) {
	if strings.HasSuffix(k.Field, PctChangeSuffix) {
		return strings.TrimSuffix(k.Field, PctChangeSuffix), true
	}
	return k.Field, false
}

// FieldSlice is a single time-indexed column. Times and Values are parallel.
type FieldSlice struct {
	Field  string
	Times  []time.Time
	Values []float64
}

// Len returns the number of rows.
func (s FieldSlice) Len() int { return len(s.Times) }

// Empty reports whether the slice carries no rows.
func (s FieldSlice) Empty() bool { return len(s.Times) == 0 }

// CacheEntry pairs a loaded slice with the modification time of the file it was read from.
type CacheEntry struct {
	Slice   FieldSlice
	ModTime int64
}
