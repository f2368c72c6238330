package sourcemap

import (
	"strings"
	"testing"
)

func TestDecodeKnownMappings(t *testing.T) {
	// "AAAA;AACA,IAAI" : line 0 col 0 -> 0:0; line 1 col 0 -> 1:0, col 4 -> 1:4
	lines, err := Decode("AAAA;AACA,IAAI")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := []Segment{
		{GenCol: 0, Source: 0, OrigLine: 1, OrigCol: 0, Fields: 4},
		{GenCol: 4, Source: 0, OrigLine: 1, OrigCol: 4, Fields: 4},
	}
	for i, seg := range lines[1] {
		if seg != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, seg, want[i])
		}
	}
	if got := Encode(lines); got != "AAAA;AACA,IAAI" {
		t.Fatalf("Encode = %q", got)
	}
}

func TestDecodeNegativeAndLargeValues(t *testing.T) {
	b := NewBuilder("out.js")
	src := b.Source("a.ts")
	b.Add(0, 1000, src, 300, 70)
	b.Add(1, 2, src, 2, 1)
	b.AddSegment(2, Segment{GenCol: 5, Fields: 1})
	m := b.Build()

	lines, err := Decode(m.Mappings)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := lines[0][0]; got.GenCol != 1000 || got.OrigLine != 300 || got.OrigCol != 70 {
		t.Errorf("unexpected first segment %+v", got)
	}
	if got := lines[1][0]; got.OrigLine != 2 || got.OrigCol != 1 {
		t.Errorf("unexpected second segment %+v", got)
	}
	if got := lines[2][0]; got.HasSource() || got.GenCol != 5 {
		t.Errorf("unexpected unmapped segment %+v", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"A!AA", "AA", "g"} {
		if _, err := Decode(in); err == nil {
			t.Errorf("Decode(%q) expected error", in)
		}
	}
}

func TestFindPicksCoveringSegment(t *testing.T) {
	lines, err := Decode("AAAA,IAAI,IAAI")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tests := []struct {
		col     int
		wantCol int
		ok      bool
	}{
		{col: 0, wantCol: 0, ok: true},
		{col: 3, wantCol: 0, ok: true},
		{col: 4, wantCol: 4, ok: true},
		{col: 100, wantCol: 8, ok: true},
	}
	for _, tt := range tests {
		seg, ok := lines.Find(0, tt.col)
		if ok != tt.ok || seg.GenCol != tt.wantCol {
			t.Errorf("Find(0, %d) = %+v, %v", tt.col, seg, ok)
		}
	}
	if _, ok := lines.Find(3, 0); ok {
		t.Errorf("expected miss for missing line")
	}
}

func TestEmptyDataURLDecodes(t *testing.T) {
	m, err := DecodeDataURL(EmptyDataURL)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if len(m.Sources) != 1 || m.Mappings != "A" {
		t.Fatalf("unexpected empty map %+v", m)
	}
}

func TestCommentsRoundTrip(t *testing.T) {
	m := &Map{Version: 3, Sources: []string{"App.svelte"}, Mappings: "AAAA"}
	js := JSComment("code", m, false)
	if !strings.HasPrefix(js, "code\n//# sourceMappingURL=data:application/json;charset=utf-8;base64,") {
		t.Fatalf("unexpected js comment %q", js)
	}
	url := strings.TrimSpace(strings.TrimPrefix(js, "code\n//# sourceMappingURL="))
	back, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if back.Sources[0] != "App.svelte" {
		t.Fatalf("sources lost: %+v", back)
	}
	if got := JSComment("code", nil, true); !strings.Contains(got, EmptyDataURL) {
		t.Fatalf("expected empty map comment, got %q", got)
	}
	if got := CSSComment("a{}", nil, false); got != "a{}" {
		t.Fatalf("expected no comment, got %q", got)
	}
}
