package observ

import (
	"strings"
	"testing"
	"time"
)

// fakeClock сдвигается на step при каждом вызове
func fakeClock(step time.Duration) func() time.Time {
	cur := time.Unix(0, 0)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(10 * time.Millisecond)

	discover := tm.Begin("discover")
	tm.End(discover, "3 files")
	tm.Track("check")("")
	tm.Add("compile", 25*time.Millisecond, "summed")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 3 {
		t.Fatalf("phases = %d, want 3", len(r.Phases))
	}
	want := []PhaseReport{
		{Name: "discover", DurationMS: 10, Note: "3 files"},
		{Name: "check", DurationMS: 10},
		{Name: "compile", DurationMS: 25, Note: "summed"},
	}
	for i, w := range want {
		if r.Phases[i] != w {
			t.Errorf("phase %d = %+v, want %+v", i, r.Phases[i], w)
		}
	}
	if r.TotalMS != 45 {
		t.Errorf("total = %v, want 45", r.TotalMS)
	}

	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n") || !strings.Contains(s, "// 3 files") || !strings.Contains(s, "45.00 ms") {
		t.Errorf("unexpected summary:\n%s", s)
	}
}

func TestTimerEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("report = %+v", r)
	}
}
