package frames

import (
	"math"
	"testing"
	"time"

	"DiffPlot/internal/domain/models"
)

var t0 = time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func slice(field string, mins []int, vals []float64) models.FieldSlice {
	ts := make([]time.Time, len(mins))
	for i, m := range mins {
		ts[i] = at(m)
	}
	return models.FieldSlice{Field: field, Times: ts, Values: vals}
}

func TestMergeDayOuterJoin(t *testing.T) {
	f := MergeDay([]models.FieldSlice{
		slice("close", []int{0, 1, 2}, []float64{10, 11, 12}),
		{Field: "open"},
		slice("high", []int{1, 3}, []float64{20, 21}),
	})
	if len(f.Index) != 4 {
		t.Fatalf("index %d", len(f.Index))
	}
	if len(f.Fields) != 2 || f.Fields[0] != "close" || f.Fields[1] != "high" {
		t.Fatalf("fields %v", f.Fields)
	}
	if f.Has("open") {
		t.Fatal("empty slice must be dropped")
	}
	c, h := f.Column("close"), f.Column("high")
	if !math.IsNaN(c[3]) || !math.IsNaN(h[0]) {
		t.Fatalf("absent cells must be NaN: close=%v high=%v", c, h)
	}
	if c[1] != 11 || h[1] != 20 || h[3] != 21 {
		t.Fatalf("close=%v high=%v", c, h)
	}
}

func TestMergeDayKeepsFirstDuplicate(t *testing.T) {
	f := MergeDay([]models.FieldSlice{slice("close", []int{0, 0, 1}, []float64{1, 2, 3})})
	if len(f.Index) != 2 || f.Column("close")[0] != 1 {
		t.Fatalf("index=%d close=%v", len(f.Index), f.Column("close"))
	}
}

func TestMergeDayAllEmpty(t *testing.T) {
	if f := MergeDay([]models.FieldSlice{{Field: "close"}}); !f.Empty() {
		t.Fatal("expected empty frame")
	}
	if f := MergeDay(nil); !f.Empty() {
		t.Fatal("expected empty frame")
	}
}

func TestStackOrdersAndDedupes(t *testing.T) {
	day2 := MergeDay([]models.FieldSlice{slice("close", []int{1440, 1441}, []float64{5, 6})})
	day1 := MergeDay([]models.FieldSlice{
		slice("close", []int{0, 1441}, []float64{1, 99}),
		slice("open", []int{0}, []float64{7}),
	})
	f := Stack([]models.Frame{day2, {}, day1})

	if len(f.Index) != 3 {
		t.Fatalf("index %v", f.Index)
	}
	for i := 1; i < len(f.Index); i++ {
		if !f.Index[i-1].Before(f.Index[i]) {
			t.Fatalf("not increasing at %d", i)
		}
	}
	if got := f.Column("close"); got[0] != 1 || got[1] != 5 || got[2] != 6 {
		t.Fatalf("first-seen row must win: %v", got)
	}
	if got := f.Column("open"); got[0] != 7 || !math.IsNaN(got[1]) {
		t.Fatalf("open %v", got)
	}
	if f.Fields[0] != "close" || f.Fields[1] != "open" {
		t.Fatalf("fields %v", f.Fields)
	}
}

func TestStackEmpty(t *testing.T) {
	if f := Stack([]models.Frame{{}, {}}); !f.Empty() {
		t.Fatal("expected empty frame")
	}
}

func TestDiff(t *testing.T) {
	run := MergeDay([]models.FieldSlice{
		slice("close", []int{0, 1, 2}, []float64{10, 12, 14}),
		slice("open", []int{0}, []float64{1}),
	})
	hist := MergeDay([]models.FieldSlice{slice("close", []int{1, 2, 3}, []float64{11, 11, 11})})

	d := Diff(run, hist)
	if d.Has("open") || !d.Has("close") {
		t.Fatalf("diff fields %v", d.Fields)
	}
	if len(d.Index) != 4 {
		t.Fatalf("diff index must be the union, got %d", len(d.Index))
	}
	c := d.Column("close")
	if !math.IsNaN(c[0]) || c[1] != 1 || c[2] != 3 || !math.IsNaN(c[3]) {
		t.Fatalf("diff close %v", c)
	}

	if !Diff(run, models.Frame{}).Empty() || !Diff(models.Frame{}, hist).Empty() {
		t.Fatal("one empty side gives empty diff")
	}
}

func TestTimelineStrictlyIncreasing(t *testing.T) {
	a := MergeDay([]models.FieldSlice{slice("x", []int{5, 1, 3}, []float64{0, 0, 0})})
	b := MergeDay([]models.FieldSlice{slice("x", []int{3, 4, 1}, []float64{0, 0, 0})})
	tl := Timeline(a, b, models.Frame{})
	if len(tl) != 4 {
		t.Fatalf("distinct timestamps %d", len(tl))
	}
	for i := 1; i < len(tl); i++ {
		if !tl[i-1].Before(tl[i]) {
			t.Fatalf("not strictly increasing at %d", i)
		}
	}
	if Timeline() != nil {
		t.Fatal("empty timeline")
	}
}

func TestReindexCarriesForward(t *testing.T) {
	f := MergeDay([]models.FieldSlice{slice("close", []int{1, 3, 4, 5}, []float64{10, math.NaN(), math.Inf(1), 12})})
	tl := []time.Time{at(0), at(1), at(2), at(3), at(4), at(5), at(6)}

	got := Reindex(f, "close", tl)
	want := []float64{0, 10, 10, 10, 10, 12, 12}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reindex %v want %v", got, want)
		}
	}

	zeros := Reindex(f, "open", tl)
	for _, v := range zeros {
		if v != 0 {
			t.Fatalf("absent column must be zeros: %v", zeros)
		}
	}
}

func TestAlignEmission(t *testing.T) {
	hist := models.Frame{}
	run := MergeDay([]models.FieldSlice{slice("close", []int{0, 1}, []float64{1, 2})})
	diff := Diff(run, hist)
	tl := Timeline(hist, run, diff)

	series := Align([]Group{
		{Name: models.GroupHistory, Frame: hist, Always: true},
		{Name: models.GroupRunning, Frame: run, Always: true},
		{Name: models.GroupDiff, Frame: diff},
	}, []string{"close"}, tl)

	if len(series) != 2 {
		t.Fatalf("series %+v", series)
	}
	if series[0].Label != "history_close" || series[1].Label != "running_close" {
		t.Fatalf("labels %s %s", series[0].Label, series[1].Label)
	}
	if series[1].Values[0] != 1 || series[1].Values[1] != 2 {
		t.Fatalf("running %v", series[1].Values)
	}
	if series[0].Values[0] != 0 || len(series[0].Values) != len(tl) {
		t.Fatalf("history %v", series[0].Values)
	}

	empty := Align([]Group{{Name: models.GroupHistory, Always: true}}, []string{"close"}, nil)
	if len(empty) != 1 || empty[0].Values == nil || len(empty[0].Values) != 0 {
		t.Fatalf("empty timeline series %+v", empty)
	}
}
