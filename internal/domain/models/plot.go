package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateParam is an 8-digit calendar date that clients send either as a JSON
// string or as a JSON number.
type DateParam string

func (d *DateParam) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*d = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*d = DateParam(strings.TrimSpace(str))
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("date must be yyyymmdd: %w", err)
	}
	*d = DateParam(strconv.FormatInt(n, 10))
	return nil
}

// PlotRequest is the body of POST /api/get-plot.
type PlotRequest struct {
	Symbol   string    `json:"symbol" validate:"required"`
	Interval string    `json:"interval" validate:"required"`
	Fields   []string  `json:"fields" validate:"required,min=1,dive,required"`
	Start    DateParam `json:"start" validate:"required,len=8,numeric"`
	End      DateParam `json:"end" validate:"required,len=8,numeric"`
}

// Series is one aligned sequence, labelled "<group>_<field>".
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// GroupStats holds per-field summary statistics of one source group.
type GroupStats struct {
	Mean  map[string]float64 `json:"mean"`
	Std   map[string]float64 `json:"std"`
	Max   map[string]float64 `json:"max"`
	Min   map[string]float64 `json:"min"`
	Count map[string]float64 `json:"count"`
}

// PlotStats groups statistics by source group. Groups without data are omitted.
type PlotStats struct {
	History *GroupStats        `json:"history,omitempty"`
	Running *GroupStats        `json:"running,omitempty"`
	Diff    *GroupStats        `json:"diff,omitempty"`
	Corr    map[string]float64 `json:"corr,omitempty"`
}

// PlotResponse is the body returned by POST /api/get-plot.
type PlotResponse struct {
	Timestamps []string  `json:"timestamps"`
	Series     []Series  `json:"series"`
	Stats      PlotStats `json:"stats"`
}

// Options is the body returned by GET /api/get-options.
type Options struct {
	Symbols   []string `json:"symbols"`
	Intervals []string `json:"intervals"`
	Fields    []string `json:"fields"`
}

// Group labels used in series names and stats keys.
const (
	GroupHistory = "history"
	GroupRunning = "running"
	GroupDiff    = "diff"
)

// TimestampLayout formats timeline entries in responses.
const TimestampLayout = "2006-01-02 15:04:05"

// AuditEvent summarizes one served plot request.
type AuditEvent struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Interval   string    `json:"interval"`
	Fields     []string  `json:"fields"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Points     int       `json:"points"`
	Series     int       `json:"series"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}
