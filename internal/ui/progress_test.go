package ui

import (
	"strings"
	"testing"

	"esvelte/internal/pipeline"
)

func TestApplyEventTracksFiles(t *testing.T) {
	m := NewProgressModel("check", []string{"A.svelte", "B.svelte"}, nil).(*progressModel)

	m.applyEvent(pipeline.Event{File: "A.svelte", Stage: pipeline.StageCompile, Status: pipeline.StatusWorking})
	if got := m.items[0].status; got != "compiling" {
		t.Fatalf("A status = %q", got)
	}
	if got := m.percent(); got != 0.3 {
		t.Fatalf("percent = %v, want 0.3", got)
	}

	m.applyEvent(pipeline.Event{File: "A.svelte", Stage: pipeline.StageEmit, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "B.svelte", Stage: pipeline.StageCompile, Status: pipeline.StatusError})
	m.applyEvent(pipeline.Event{File: "B.svelte", Stage: pipeline.StageCompile, Status: pipeline.StatusError})
	if m.finished() != 2 || m.failed != 1 {
		t.Fatalf("finished=%d failed=%d", m.finished(), m.failed)
	}

	// файлы вне списка добавляются на лету
	m.applyEvent(pipeline.Event{File: "C.svelte", Stage: pipeline.StagePreprocess, Status: pipeline.StatusWorking})
	if len(m.items) != 3 || m.items[2].status != "preprocess" {
		t.Fatalf("items = %+v", m.items)
	}

	view := m.View()
	for _, want := range []string{"check (2/3), 1 failed", "A.svelte", "C.svelte"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short.svelte", 20, "short.svelte"},
		{"src/components/VeryLong.svelte", 12, "src/co..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestIntermediateDoneKeepsStage(t *testing.T) {
	m := NewProgressModel("build", []string{"A.svelte"}, nil).(*progressModel)
	m.applyEvent(pipeline.Event{File: "A.svelte", Stage: pipeline.StagePreprocess, Status: pipeline.StatusWorking})
	m.applyEvent(pipeline.Event{File: "A.svelte", Stage: pipeline.StagePreprocess, Status: pipeline.StatusDone})
	if got := m.items[0].status; got != "preprocess" {
		t.Fatalf("status = %q, want preprocess", got)
	}
}
