package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"esvelte/internal/compiler"
	"esvelte/internal/compiler/compilertest"
	"esvelte/internal/cssreg"
	"esvelte/internal/diag"
	"esvelte/internal/sourcemap"
)

const button = "<script lang=\"ts\">\n  let n: number = 1\n</script>\n<button>{n}</button>\n<style>\n  button { color: red; }\n</style>\n"

func newPipeline(t *testing.T, root string, fake *compilertest.Fake, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	cfg := Config{
		Root:      root,
		Compiler:  fake,
		EmitCSS:   true,
		Sourcemap: SourcemapConfig{JS: true, CSS: true},
		CompileOptions: compiler.Options{
			Generate: compiler.GenerateClient,
			Dev:      true,
			CSS:      compiler.CSSExternal,
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// trailingMap decodes the sourcemap comment at the end of a script.
func trailingMap(t *testing.T, contents string) *sourcemap.Map {
	t.Helper()
	const marker = "\n//# sourceMappingURL="
	idx := strings.LastIndex(contents, marker)
	if idx < 0 {
		t.Fatalf("no sourcemap comment in %q", contents)
	}
	m, err := sourcemap.DecodeDataURL(strings.TrimSpace(contents[idx+len(marker):]))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestLoadComponentEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Button.svelte", button)
	p := newPipeline(t, dir, &compilertest.Fake{})
	reg := cssreg.New()

	res := p.LoadComponent(context.Background(), path, "", reg)
	if res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if res.Loader != LoaderJS {
		t.Fatalf("loader = %s", res.Loader)
	}
	if strings.Contains(res.Contents, ": number") {
		t.Fatalf("type annotation survived: %q", res.Contents)
	}
	if !strings.Contains(res.Contents, "\nimport \"./Button.svelte?svelte&type=style&lang.css\";\n") {
		t.Fatalf("style import missing: %q", res.Contents)
	}
	m := trailingMap(t, res.Contents)
	if !slices.Equal(m.Sources, []string{"Button.svelte"}) {
		t.Fatalf("sources = %v", m.Sources)
	}
	if got, ok := m.Content(0); !ok || got != button {
		t.Fatalf("sourcesContent = %q", got)
	}

	if reg.Len() != 1 {
		t.Fatalf("registry holds %d entries", reg.Len())
	}
	style := p.LoadStyle(reg, cssreg.StyleFor(path, "").Key)
	if style.Failed() || style.Loader != LoaderCSS {
		t.Fatalf("style load: %+v", style)
	}
	if !strings.HasPrefix(style.Contents, "\n  button { color: red; }\n") || !strings.Contains(style.Contents, "/*# sourceMappingURL=data:") {
		t.Fatalf("style contents = %q", style.Contents)
	}

	again := p.LoadStyle(reg, cssreg.StyleFor(path, "").Key)
	if !again.Failed() || again.Errors[0].Code != diag.CSSNotFound || again.Errors[0].Text != "CSS not found" {
		t.Fatalf("second style load: %+v", again)
	}
}

func TestLoadComponentWithoutTypeScriptIsUntouched(t *testing.T) {
	dir := t.TempDir()
	src := "<script>\n  let n = 1\n</script>\n<p>{n}</p>\n"
	path := writeFile(t, dir, "Plain.svelte", src)
	fake := &compilertest.Fake{}
	p := newPipeline(t, dir, fake)

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	if res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	calls := fake.Calls()
	if len(calls) != 1 || calls[0].Code != src || calls[0].Options.Sourcemap != nil {
		t.Fatalf("compiler saw %+v", calls)
	}
	if calls[0].Options.Filename != "Plain.svelte" {
		t.Fatalf("filename = %q", calls[0].Options.Filename)
	}
	if strings.Contains(res.Contents, "import \"./Plain.svelte?") {
		t.Fatal("component without styles must not import one")
	}
}

func TestLoadComponentMissingScriptSrc(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.svelte", "<script lang=\"ts\" src=\"./missing.ts\"></script>\n<p/>\n")
	p := newPipeline(t, dir, &compilertest.Fake{})

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	if res.Failed() {
		t.Fatalf("missing src must not fail the file: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Code != diag.ScriptSrcMissing || w.Location == nil || w.Location.File != "A.svelte" {
		t.Fatalf("warning = %+v", w)
	}
}

func TestLoadComponentExternalScript(t *testing.T) {
	dir := t.TempDir()
	ext := "export const x: number = 1\n"
	writeFile(t, dir, "ext.ts", ext)
	src := "<script lang=\"ts\" src=\"./ext.ts\"></script>\n<p>{x}</p>\n"
	path := writeFile(t, dir, "A.svelte", src)
	p := newPipeline(t, dir, &compilertest.Fake{})

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	if res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if !slices.Equal(res.WatchFiles, []string{filepath.Join(dir, "ext.ts")}) {
		t.Fatalf("watch files = %v", res.WatchFiles)
	}
	m := trailingMap(t, res.Contents)
	want := map[string]string{"A.svelte": src, "ext.ts": ext}
	if len(m.Sources) != len(want) {
		t.Fatalf("sources = %v", m.Sources)
	}
	for i, s := range m.Sources {
		got, ok := m.Content(i)
		if !ok || got != want[s] {
			t.Errorf("content of %s = %q (ok=%v)", s, got, ok)
		}
	}
}

func TestLoadComponentTranslatesWarnings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Button.svelte", button)
	fake := &compilertest.Fake{Warnings: []compiler.Warning{{
		Code:    "unused",
		Message: "n is unused",
		Start:   &compiler.Position{Line: 1, Column: 18},
		End:     &compiler.Position{Line: 1, Column: 21},
	}}}
	p := newPipeline(t, dir, fake)

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	loc := res.Warnings[0].Location
	if loc == nil || loc.File != "Button.svelte" || loc.Line != 2 || loc.Column != 2 || loc.Length != 3 {
		t.Fatalf("location = %+v", loc)
	}
	if loc.LineText != "<script lang=\"ts\">let n = 1;" {
		t.Fatalf("line text = %q", loc.LineText)
	}
}

func TestLoadComponentCompileError(t *testing.T) {
	dir := t.TempDir()
	src := "<p>\n  {#if}\n</p>\n"
	path := writeFile(t, dir, "Bad.svelte", src)
	fake := &compilertest.Fake{Fail: &compiler.Error{
		Code:     "block_unexpected",
		Message:  "Expected expression",
		Filename: "Bad.svelte",
		Start:    &compiler.Position{Line: 2, Column: 2},
		End:      &compiler.Position{Line: 2, Column: 7},
	}}
	p := newPipeline(t, dir, fake)

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	if !res.Failed() || res.Contents != "" {
		t.Fatalf("expected a failed load, got %+v", res)
	}
	d := res.Errors[0]
	if d.Severity != diag.SevError || d.Code != "block_unexpected" {
		t.Fatalf("diagnostic = %+v", d)
	}
	if d.Location.Line != 2 || d.Location.Column != 2 || d.Location.Length != 5 || d.Location.LineText != "  {#if}" {
		t.Fatalf("location = %+v", d.Location)
	}

	fake.Fail = errors.New("node exited")
	res = p.LoadComponent(context.Background(), path, "", cssreg.New())
	if len(res.Errors) != 1 || res.Errors[0].Location != nil || res.Errors[0].Code != diag.CompileFailed {
		t.Fatalf("plain failure = %+v", res.Errors)
	}
}

func TestLoadComponentReadError(t *testing.T) {
	p := newPipeline(t, t.TempDir(), &compilertest.Fake{})
	res := p.LoadComponent(context.Background(), filepath.Join(t.TempDir(), "Nope.svelte"), "", cssreg.New())
	if !res.Failed() || res.Errors[0].Code != diag.SourceRead {
		t.Fatalf("result = %+v", res)
	}
}

func TestDynamicCompileOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Widget.svelte", "<p/>\n")
	fake := &compilertest.Fake{}
	var seen DynamicInput
	p := newPipeline(t, dir, fake, func(c *Config) {
		c.Dynamic = func(_ context.Context, in DynamicInput) (compiler.Options, error) {
			seen = in
			in.Options.CustomElement = true
			in.Options.Filename = "other.svelte"
			return in.Options, nil
		}
	})

	if res := p.LoadComponent(context.Background(), path, "", cssreg.New()); res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if seen.Filename != "Widget.svelte" || seen.Code != "<p/>\n" {
		t.Fatalf("hook saw %+v", seen)
	}
	opts := fake.Calls()[0].Options
	if !opts.CustomElement || opts.Filename != "Widget.svelte" {
		t.Fatalf("compile options = %+v", opts)
	}
	if p.Config().CompileOptions.CustomElement {
		t.Fatal("hook leaked into the shared options")
	}

	failing := newPipeline(t, dir, fake, func(c *Config) {
		c.Dynamic = func(context.Context, DynamicInput) (compiler.Options, error) {
			return compiler.Options{}, errors.New("nope")
		}
	})
	res := failing.LoadComponent(context.Background(), path, "", cssreg.New())
	if !res.Failed() || res.Errors[0].Code != diag.DynamicOptions {
		t.Fatalf("result = %+v", res)
	}
}

func TestDisabledSourcemaps(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Button.svelte", button)
	p := newPipeline(t, dir, &compilertest.Fake{}, func(c *Config) { c.Sourcemap = SourcemapConfig{} })
	reg := cssreg.New()

	res := p.LoadComponent(context.Background(), path, "", reg)
	if !strings.HasSuffix(res.Contents, "\n//# sourceMappingURL="+sourcemap.EmptyDataURL+"\n") {
		t.Fatalf("contents = %q", res.Contents)
	}
	style := p.LoadStyle(reg, cssreg.StyleFor(path, "").Key)
	if !strings.HasSuffix(style.Contents, "\n/*# sourceMappingURL="+sourcemap.EmptyDataURL+" */\n") {
		t.Fatalf("style = %q", style.Contents)
	}
}

func TestConcurrentLoadsKeepStylesApart(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, dir, &compilertest.Fake{})
	reg := cssreg.New()
	const n = 16
	paths := make([]string, n)
	for i := range n {
		paths[i] = writeFile(t, dir, fmt.Sprintf("C%d.svelte", i), fmt.Sprintf("<p/>\n<style>.c%d{}</style>\n", i))
	}

	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := p.LoadComponent(context.Background(), path, "", reg); res.Failed() {
				t.Error(res.Errors)
			}
		}()
	}
	wg.Wait()

	for i, path := range paths {
		style := p.LoadStyle(reg, cssreg.StyleFor(path, "").Key)
		if !strings.HasPrefix(style.Contents, fmt.Sprintf(".c%d{}", i)) {
			t.Errorf("C%d got %q", i, style.Contents)
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("leftover entries: %d", reg.Len())
	}
}

func TestLoadModuleStripsTypeScript(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "store.svelte.ts", "export let count: number = $state(0)\n")
	fake := &compilertest.Fake{ModuleWarnings: []compiler.Warning{{Code: "w", Message: "module warning"}}}
	p := newPipeline(t, dir, fake)

	res := p.LoadModule(context.Background(), path)
	if res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if strings.Contains(res.Contents, ": number") || !strings.Contains(res.Contents, "$state(0)") {
		t.Fatalf("contents = %q", res.Contents)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Text != "module warning" || res.Warnings[0].Location != nil {
		t.Fatalf("warnings = %v", res.Warnings)
	}

	js := writeFile(t, dir, "plain.svelte.js", "export let a = $state(1)\n")
	if res := p.LoadModule(context.Background(), js); !strings.HasPrefix(res.Contents, "export let a = $state(1)\n") {
		t.Fatalf("js module = %q", res.Contents)
	}
}

func TestLoadModuleMapsBackToTypeScript(t *testing.T) {
	dir := t.TempDir()
	ts := "interface A {\n  n: number\n}\ntype B = A\nexport let count = 1\n"
	path := writeFile(t, dir, "store.svelte.ts", ts)
	fake := &compilertest.Fake{ModuleWarnings: []compiler.Warning{{
		Code:    "state_unused",
		Message: "count is never reassigned",
		Start:   &compiler.Position{Line: 1, Column: 0},
		End:     &compiler.Position{Line: 1, Column: 6},
	}}}
	p := newPipeline(t, dir, fake)

	res := p.LoadModule(context.Background(), path)
	if res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if !strings.HasPrefix(res.Contents, "export let count = 1;\n") {
		t.Fatalf("contents = %q", res.Contents)
	}

	m := trailingMap(t, res.Contents)
	if len(m.Sources) != 1 || m.Sources[0] != "store.svelte.ts" {
		t.Fatalf("sources = %v", m.Sources)
	}
	if got, ok := m.Content(0); !ok || got != ts {
		t.Fatalf("content = %q", got)
	}
	loc, err := sourcemap.NewLocator(m)
	if err != nil {
		t.Fatal(err)
	}
	pos, ok := loc.Original(1, 0)
	if !ok || pos.Line != 5 || pos.Column != 0 {
		t.Fatalf("line 1 maps to %+v (ok=%v), want store.svelte.ts:5:0", pos, ok)
	}

	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	wl := res.Warnings[0].Location
	if wl == nil || wl.File != "store.svelte.ts" || wl.Line != 5 || wl.Column != 0 || wl.Length != 6 {
		t.Fatalf("warning location = %+v", wl)
	}
}

func TestLoadComponentWarningInExternalScript(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "src/ext.ts", "export const x: number = 1\n")
	path := writeFile(t, dir, "src/A.svelte", "<script lang=\"ts\" src=\"./ext.ts\"></script>\n<p>{x}</p>\n")
	// after preprocessing line 1 is `<script lang="ts" src="./ext.ts">export const x = 1;`
	// and x sits at column 46
	fake := &compilertest.Fake{Warnings: []compiler.Warning{{
		Code:     "unused_export",
		Message:  "x is unused",
		Filename: "src/A.svelte",
		Start:    &compiler.Position{Line: 1, Column: 46},
		End:      &compiler.Position{Line: 1, Column: 47},
	}}}
	p := newPipeline(t, dir, fake)

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	if res.Failed() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	loc := res.Warnings[0].Location
	if loc == nil || loc.File != "src/ext.ts" || loc.Line != 1 || loc.LineText != "export const x: number = 1" {
		t.Fatalf("location = %+v", loc)
	}
	if loc.Column > 13 || loc.Length != 1 {
		t.Fatalf("column/length = %d/%d", loc.Column, loc.Length)
	}
}

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestProgressAndTimings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Button.svelte", button)
	sink := &recordSink{}
	p := newPipeline(t, dir, &compilertest.Fake{}, func(c *Config) { c.Progress = sink })

	res := p.LoadComponent(context.Background(), path, "", cssreg.New())
	var got []string
	for _, e := range sink.events {
		if e.File != "Button.svelte" {
			t.Fatalf("event for %q", e.File)
		}
		got = append(got, string(e.Stage)+":"+string(e.Status))
	}
	want := []string{
		"preprocess:working", "preprocess:done",
		"compile:working", "compile:done",
		"emit:working", "emit:done",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v", got)
	}
	for _, s := range Stages {
		if !res.Timings.Has(s) {
			t.Errorf("no timing for %s", s)
		}
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 5 {
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("B%d.svelte", i), "<p/>\n<style>p{}</style>\n"))
	}
	paths = append(paths, filepath.Join(dir, "Missing.svelte"))
	p := newPipeline(t, dir, &compilertest.Fake{})

	results, err := p.Batch(context.Background(), paths, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(paths) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results[:5] {
		if r.Path != paths[i] || r.Result.Failed() {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if !results[5].Result.Failed() {
		t.Fatal("missing file must fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Batch(ctx, paths, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled batch: %v", err)
	}
}

func TestNewRequiresCompiler(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error")
	}
}
