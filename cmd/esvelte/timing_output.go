package main

import (
	"fmt"
	"io"
	"sync"

	"esvelte/internal/observ"
	"esvelte/internal/pipeline"
)

// stageTotals sums stage durations over every component it hears about and
// forwards events to next when set.
type stageTotals struct {
	mu     sync.Mutex
	totals pipeline.Timings
	files  map[string]struct{}
	next   pipeline.ProgressSink
}

func (s *stageTotals) OnEvent(ev pipeline.Event) {
	if ev.Status == pipeline.StatusDone || ev.Status == pipeline.StatusError {
		s.mu.Lock()
		s.totals.Set(ev.Stage, s.totals.Duration(ev.Stage)+ev.Elapsed)
		if s.files == nil {
			s.files = make(map[string]struct{})
		}
		s.files[ev.File] = struct{}{}
		s.mu.Unlock()
	}
	if s.next != nil {
		s.next.OnEvent(ev)
	}
}

// Timings returns a snapshot of the sums.
func (s *stageTotals) Timings() pipeline.Timings {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out pipeline.Timings
	for _, stage := range pipeline.Stages {
		if s.totals.Has(stage) {
			out.Set(stage, s.totals.Duration(stage))
		}
	}
	return out
}

func (s *stageTotals) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", stage, observ.DurationToMillis(timings.Duration(stage))); err != nil {
			panic(err)
		}
	}
}
