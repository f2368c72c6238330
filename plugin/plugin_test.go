package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/evanw/esbuild/pkg/api"

	"esvelte/internal/compiler"
	"esvelte/internal/compiler/compilertest"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func build(t *testing.T, dir string, bo api.BuildOptions, opts ...Option) api.BuildResult {
	t.Helper()
	bo.EntryPoints = []string{"main.js"}
	bo.Bundle = true
	bo.Write = false
	bo.Outdir = filepath.Join(dir, "out")
	bo.AbsWorkingDir = dir
	bo.LogLevel = api.LogLevelSilent
	bo.Plugins = []api.Plugin{New(append([]Option{WithRoot(dir)}, opts...)...)}
	return api.Build(bo)
}

func output(res api.BuildResult, ext string) string {
	for _, f := range res.OutputFiles {
		if strings.HasSuffix(f.Path, ext) {
			return string(f.Contents)
		}
	}
	return ""
}

func TestBuildBundlesScriptAndStyle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.js":       "import Button from './Button.svelte'\nconsole.log(Button)\n",
		"Button.svelte": "<script lang=\"ts\">\n  let n: number = 1\n</script>\n<button>{n}</button>\n<style>\n  button { color: red; }\n</style>\n",
	})
	res := build(t, dir, api.BuildOptions{}, WithCompiler(&compilertest.Fake{}))
	if len(res.Errors) > 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	if js := output(res, ".js"); !strings.Contains(js, "Component") || strings.Contains(js, ": number") {
		t.Fatalf("js output = %q", js)
	}
	if css := output(res, ".css"); !strings.Contains(css, "color: red") {
		t.Fatalf("css output = %q", css)
	}
}

func TestBuildInfersProductionMode(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.js":  "import A from './A.svelte'\nconsole.log(A)\n",
		"A.svelte": "<p>hi</p>\n",
	})
	fake := &compilertest.Fake{}
	res := build(t, dir, api.BuildOptions{Define: map[string]string{"process.env.NODE_ENV": `"production"`}}, WithCompiler(fake))
	if len(res.Errors) > 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	if opts := calls[0].Options; opts.Dev || opts.Generate != compiler.GenerateClient || opts.CSS != compiler.CSSExternal {
		t.Fatalf("options = %+v", opts)
	}

	fake = &compilertest.Fake{}
	res = build(t, dir, api.BuildOptions{}, WithCompiler(fake), WithDev(false), WithCompileOptions(compiler.Options{Generate: compiler.GenerateServer}))
	if len(res.Errors) > 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	if opts := fake.Calls()[0].Options; opts.Dev || opts.Generate != compiler.GenerateServer {
		t.Fatalf("pinned options = %+v", opts)
	}
}

func TestBuildReportsCompileErrorsAtSource(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.js":    "import Bad from './Bad.svelte'\nconsole.log(Bad)\n",
		"Bad.svelte": "<p>\n  {#if}\n</p>\n",
	})
	fake := &compilertest.Fake{Fail: &compiler.Error{
		Code:    "expected_expression",
		Message: "Expected expression",
		Start:   &compiler.Position{Line: 2, Column: 2},
		End:     &compiler.Position{Line: 2, Column: 7},
	}}
	res := build(t, dir, api.BuildOptions{}, WithCompiler(fake))
	if len(res.Errors) != 1 {
		t.Fatalf("errors: %v", res.Errors)
	}
	msg := res.Errors[0]
	if msg.Text != "Expected expression" || msg.Location == nil {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Location.File != "Bad.svelte" || msg.Location.Line != 2 || msg.Location.Column != 2 || msg.Location.Length != 5 {
		t.Fatalf("location = %+v", msg.Location)
	}
}

func TestBuildFailsOnUnregisteredStyle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.js":  "import './A.svelte?svelte&type=style&lang.css'\n",
		"A.svelte": "<p/>\n",
	})
	res := build(t, dir, api.BuildOptions{}, WithCompiler(&compilertest.Fake{}))
	if len(res.Errors) != 1 || res.Errors[0].Text != "CSS not found" {
		t.Fatalf("errors: %+v", res.Errors)
	}
}

func TestBuildCompilesRuneModules(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.js":         "import { count } from './store.svelte.ts'\nconsole.log(count)\n",
		"store.svelte.ts": "export const count: number = 1\n",
	})
	res := build(t, dir, api.BuildOptions{}, WithCompiler(&compilertest.Fake{}))
	if len(res.Errors) > 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	if js := output(res, ".js"); strings.Contains(js, ": number") || !strings.Contains(js, "count") {
		t.Fatalf("js output = %q", js)
	}
}

func TestNewPanicsOnBadFilter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	New(WithFilter("("))
}

func TestRebuildDropsUnclaimedStyles(t *testing.T) {
	const styleID = "./A.svelte?svelte&type=style&lang.css"
	dir := writeFiles(t, map[string]string{
		"main.js":  "import A from './A.svelte'\nconsole.log(A)\n",
		"A.svelte": "<p>hi</p>\n<style>\n  p { color: red; }\n</style>\n",
	})

	// на первом проходе стиль паркуется, но его импорт уходит во внешние
	var pass atomic.Int32
	hold := api.Plugin{Name: "hold-styles", Setup: func(b api.PluginBuild) {
		b.OnResolve(api.OnResolveOptions{Filter: styleFilter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
			if pass.Load() == 1 {
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			}
			return api.OnResolveResult{}, nil
		})
	}}
	ctx, cerr := api.Context(api.BuildOptions{
		EntryPoints:   []string{"main.js"},
		Bundle:        true,
		Write:         false,
		Outdir:        filepath.Join(dir, "out"),
		AbsWorkingDir: dir,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{hold, New(WithRoot(dir), WithCompiler(&compilertest.Fake{}))},
	})
	if cerr != nil {
		t.Fatal(cerr)
	}
	defer ctx.Dispose()

	pass.Store(1)
	res := ctx.Rebuild()
	if len(res.Errors) > 0 {
		t.Fatalf("pass 1 errors: %v", res.Errors)
	}
	if js := output(res, ".js"); !strings.Contains(js, styleID) {
		t.Fatalf("pass 1 should leave the style import unclaimed: %q", js)
	}

	if err := os.WriteFile(filepath.Join(dir, "main.js"), []byte("import '"+styleID+"'\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pass.Store(2)
	res = ctx.Rebuild()
	if len(res.Errors) != 1 || res.Errors[0].Text != "CSS not found" {
		t.Fatalf("pass 2 must not see styles parked by pass 1: %+v", res.Errors)
	}
}
