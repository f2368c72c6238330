package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"esvelte/internal/diag"
)

func TestNodeCompilerMissingBinary(t *testing.T) {
	c := &NodeCompiler{Node: filepath.Join(t.TempDir(), "no-node"), Root: t.TempDir()}
	_, err := c.Compile(context.Background(), "<p/>", Options{Filename: "A.svelte", Generate: GenerateClient})
	if err == nil {
		t.Fatal("expected an error for a missing node binary")
	}
	var ce *Error
	if errors.As(err, &ce) {
		t.Fatalf("process failures must not look like compile errors: %v", err)
	}
}

func TestNodeResponseDecoding(t *testing.T) {
	raw := `{
		"js": {"code": "export default 1", "map": {"version":3,"sources":["A.svelte"],"names":[],"mappings":"AAAA"}},
		"css": {"code": "p{}", "map": null},
		"warnings": [{"code": "a11y", "message": "hmm", "filename": "A.svelte", "start": {"line": 2, "column": 1, "character": 9}}]
	}`
	var res nodeResponse
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatal(err)
	}
	js, err := res.JS.output()
	if err != nil {
		t.Fatal(err)
	}
	if js.Map == nil || js.Map.Sources[0] != "A.svelte" {
		t.Fatalf("js map = %v", js.Map)
	}
	css, err := res.CSS.output()
	if err != nil || css.Map != nil || css.Code != "p{}" {
		t.Fatalf("css = %+v, %v", css, err)
	}
	msg := res.Warnings[0].DiagnosticMessage()
	if msg.Code != diag.Code("a11y") || msg.Start.Line != 2 || msg.End != nil {
		t.Fatalf("message = %+v", msg)
	}
}

func TestErrorIsPositioned(t *testing.T) {
	var err error = &Error{Code: "parse_error", Message: "Unexpected token", Filename: "A.svelte", Start: &Position{Line: 3, Column: 4}}
	var p diag.Positioned
	if !errors.As(err, &p) {
		t.Fatal("compiler errors must carry a position")
	}
	if got := err.Error(); got != "A.svelte:3:4: Unexpected token" {
		t.Fatalf("Error() = %q", got)
	}
	if msg := p.DiagnosticMessage(); msg.Start.Line != 3 || msg.Code != "parse_error" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestMessagesKeepOrderAndText(t *testing.T) {
	ws := []Warning{
		{Code: "a11y", Message: "first", Start: &Position{Line: 1, Column: 2}},
		{Code: "css_unused", Message: "second"},
	}
	msgs := Messages(ws)
	if len(msgs) != 2 || msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Start == nil || msgs[0].Start.Column != 2 || msgs[1].Start != nil {
		t.Fatalf("positions = %+v %+v", msgs[0].Start, msgs[1].Start)
	}
}

func TestNodeCompilerVersionMissingBinary(t *testing.T) {
	c := &NodeCompiler{Node: filepath.Join(t.TempDir(), "no-node"), Root: t.TempDir()}
	if _, err := c.Version(context.Background()); err == nil {
		t.Fatal("expected an error for a missing node binary")
	}
}

func TestNodeResponseVersion(t *testing.T) {
	var res nodeResponse
	if err := json.Unmarshal([]byte(`{"version":"5.1.0"}`), &res); err != nil {
		t.Fatal(err)
	}
	if res.Version != "5.1.0" || res.JS != nil {
		t.Fatalf("res = %+v", res)
	}
}
