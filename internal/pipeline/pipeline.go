// Package pipeline turns one component file into the script module, the
// stylesheet and the diagnostics handed back to the bundler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"esvelte/internal/compiler"
	"esvelte/internal/cssreg"
	"esvelte/internal/diag"
	"esvelte/internal/preprocess"
	"esvelte/internal/source"
	"esvelte/internal/sourcemap"
)

// Loader names the content type of a LoadResult.
type Loader string

const (
	LoaderJS  Loader = "js"
	LoaderCSS Loader = "css"
)

// LoadResult is the outcome of one load. A file-fatal failure leaves
// Contents empty and Errors non-empty.
type LoadResult struct {
	Contents   string
	Loader     Loader
	Warnings   []diag.Diagnostic
	Errors     []diag.Diagnostic
	WatchFiles []string
	Timings    Timings
}

// Failed reports whether the load produced errors.
func (r LoadResult) Failed() bool {
	return len(r.Errors) > 0
}

// Pipeline is safe for concurrent use; every call keeps its state private
// apart from the registry it is handed.
type Pipeline struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Compiler == nil {
		return nil, errors.New("pipeline: compiler is required")
	}
	if cfg.Transformer == nil {
		cfg.Transformer = preprocess.EsbuildTransformer{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, log: log}, nil
}

// Config returns the configuration the pipeline runs with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// LoadComponent runs a component through preprocess, compile and emit.
// suffix is the query the bundler loaded the file with. When the component
// has styles and EmitCSS is on, they are parked in reg and the script
// imports them.
func (p *Pipeline) LoadComponent(ctx context.Context, path, suffix string, reg *cssreg.Registry) LoadResult {
	var res LoadResult
	res.Loader = LoaderJS

	file, err := source.Load(path, p.cfg.Root)
	if err != nil {
		display := displayOf(p.cfg.Root, path)
		emit(p.cfg.Progress, display, StagePreprocess, StatusError, err, 0)
		res.Errors = []diag.Diagnostic{diag.NewError(diag.SourceRead, fmt.Sprintf("read %s: %v", display, err))}
		return res
	}
	display := file.Display
	original := file.Text()
	log := p.log.With(zap.String("file", display))
	warnings := diag.NewBag(0)

	// preprocess
	emit(p.cfg.Progress, display, StagePreprocess, StatusWorking, nil, 0)
	start := time.Now()
	code, preMap, deps, err := p.preprocess(ctx, file, warnings)
	res.WatchFiles = deps
	res.Timings.Set(StagePreprocess, time.Since(start))
	if err != nil {
		tr := p.translator(file, original, nil)
		return p.fail(res, display, StagePreprocess, err, warnings, tr.FromError(diag.PreprocessFailed, err))
	}
	emit(p.cfg.Progress, display, StagePreprocess, StatusDone, nil, res.Timings.Duration(StagePreprocess))

	// compile
	emit(p.cfg.Progress, display, StageCompile, StatusWorking, nil, 0)
	start = time.Now()
	tr := p.translator(file, code, preMap)
	opts, err := p.compileOptions(ctx, display, code)
	if err != nil {
		return p.fail(res, display, StageCompile, err, warnings, []diag.Diagnostic{diag.NewError(diag.DynamicOptions, err.Error())})
	}
	opts.Sourcemap = preMap
	compiled, err := p.cfg.Compiler.Compile(ctx, code, opts)
	res.Timings.Set(StageCompile, time.Since(start))
	if err != nil {
		return p.fail(res, display, StageCompile, err, warnings, tr.FromError(diag.CompileFailed, err))
	}
	emit(p.cfg.Progress, display, StageCompile, StatusDone, nil, res.Timings.Duration(StageCompile))

	// emit
	emit(p.cfg.Progress, display, StageEmit, StatusWorking, nil, 0)
	start = time.Now()
	js := compiled.JS.Code
	if p.cfg.EmitCSS && compiled.CSS != nil && strings.TrimSpace(compiled.CSS.Code) != "" {
		style := cssreg.StyleFor(file.Path, suffix)
		entry := cssreg.Entry{
			Code:       compiled.CSS.Code,
			Source:     original,
			Path:       file.Path,
			DisableMap: !p.cfg.Sourcemap.CSS,
		}
		if p.cfg.Sourcemap.CSS {
			entry.Map = compiled.CSS.Map
		}
		if err := reg.Put(style.Key, entry); err != nil {
			return p.fail(res, display, StageEmit, err, warnings, []diag.Diagnostic{diag.NewError(diag.CSSDuplicate, err.Error())})
		}
		js += "\nimport " + strconv.Quote(style.ID) + ";\n"
	}

	var jsMap *sourcemap.Map
	if p.cfg.Sourcemap.JS {
		jsMap = sourcemap.Repair(compiled.JS.Map, sourcemap.RepairInput{
			Basename: file.Base(),
			Original: original,
			Dir:      file.Dir(),
			ReadFile: source.ReadOptional,
		})
	}
	res.Contents = sourcemap.JSComment(js, jsMap, !p.cfg.Sourcemap.JS)
	warnings.AddAll(tr.Translate(diag.SevWarning, compiler.Messages(compiled.Warnings)...))
	res.Warnings = warnings.Items()
	res.Timings.Set(StageEmit, time.Since(start))
	emit(p.cfg.Progress, display, StageEmit, StatusDone, nil, res.Timings.Duration(StageEmit))

	log.Debug("component loaded",
		zap.Duration("elapsed", res.Timings.Sum()),
		zap.Int("warnings", len(res.Warnings)),
		zap.Bool("css", compiled.CSS != nil))
	return res
}

func (p *Pipeline) preprocess(ctx context.Context, file *source.File, warnings *diag.Bag) (string, *sourcemap.Map, []string, error) {
	groups := append([]preprocess.Group(nil), p.cfg.Preprocess...)
	if !p.cfg.DisableTypeScript {
		groups = append(groups, preprocess.TypeScript(preprocess.TypeScriptOptions{
			CompilerOptions: p.cfg.TypeScript,
			Root:            p.cfg.Root,
			Transformer:     p.cfg.Transformer,
			OnWarn:          func(d diag.Diagnostic) { warnings.Add(d) },
		}))
	}
	if len(groups) == 0 {
		return file.Text(), nil, nil, nil
	}
	out, err := preprocess.Run(ctx, file.Text(), file.Path, groups)
	if err != nil {
		return "", nil, nil, err
	}
	return out.Code, out.Map, out.Dependencies, nil
}

func (p *Pipeline) compileOptions(ctx context.Context, display, code string) (compiler.Options, error) {
	opts := p.cfg.CompileOptions
	if len(opts.Extra) > 0 {
		extra := make(map[string]any, len(opts.Extra))
		for k, v := range opts.Extra {
			extra[k] = v
		}
		opts.Extra = extra
	}
	opts.Filename = display
	if p.cfg.Dynamic != nil {
		changed, err := p.cfg.Dynamic(ctx, DynamicInput{Filename: display, Code: code, Options: opts})
		if err != nil {
			return compiler.Options{}, fmt.Errorf("dynamic compile options: %w", err)
		}
		opts = changed
	}
	opts.Filename = display
	return opts, nil
}

func (p *Pipeline) fail(res LoadResult, display string, stage Stage, err error, warnings *diag.Bag, errs []diag.Diagnostic) LoadResult {
	emit(p.cfg.Progress, display, stage, StatusError, err, res.Timings.Duration(stage))
	p.log.Debug("component failed", zap.String("file", display), zap.String("stage", string(stage)), zap.Error(err))
	res.Contents = ""
	res.Errors = errs
	res.Warnings = warnings.Items()
	return res
}

// LoadStyle is the second half of the css handshake: it consumes the
// entry a component load parked under key.
func (p *Pipeline) LoadStyle(reg *cssreg.Registry, key string) LoadResult {
	res := LoadResult{Loader: LoaderCSS}
	e, err := reg.Take(key)
	if err != nil {
		p.log.Debug("style not registered", zap.String("key", key))
		res.Errors = []diag.Diagnostic{diag.NewError(diag.CSSNotFound, err.Error())}
		return res
	}
	res.Contents = e.Contents()
	return res
}

// LoadModule compiles a .svelte.js or .svelte.ts rune module. TypeScript
// is stripped first because the module compiler only reads JavaScript; the
// strip map is folded under the compiler's map and positions findings.
func (p *Pipeline) LoadModule(ctx context.Context, path string) LoadResult {
	res := LoadResult{Loader: LoaderJS}
	file, err := source.Load(path, p.cfg.Root)
	if err != nil {
		res.Errors = []diag.Diagnostic{diag.NewError(diag.SourceRead, err.Error())}
		return res
	}
	display := file.Display
	warnings := diag.NewBag(0)
	code := file.Text()

	var preMap *sourcemap.Map
	start := time.Now()
	if strings.HasSuffix(file.Path, ".ts") {
		out, err := p.cfg.Transformer.Transform(ctx, code, preprocess.TransformOptions{Sourcefile: file.Base(), Module: true})
		res.Timings.Set(StagePreprocess, time.Since(start))
		if err != nil {
			tr := p.translator(file, code, nil)
			return p.fail(res, display, StagePreprocess, err, warnings, tr.FromError(diag.TransformFailed, err))
		}
		for _, w := range out.Warnings {
			if w.Location != nil {
				w.Location.File = display
			}
			warnings.Add(w)
		}
		code, preMap = out.Code, out.Map
	}

	start = time.Now()
	opts := p.cfg.CompileOptions
	compiled, err := p.cfg.Compiler.CompileModule(ctx, code, compiler.ModuleOptions{
		Filename: display,
		Generate: opts.Generate,
		Dev:      opts.Dev,
	})
	res.Timings.Set(StageCompile, time.Since(start))
	tr := p.translator(file, code, preMap)
	if err != nil {
		return p.fail(res, display, StageCompile, err, warnings, tr.FromError(diag.CompileFailed, err))
	}

	start = time.Now()
	var m *sourcemap.Map
	if p.cfg.Sourcemap.JS {
		composed, err := sourcemap.Compose(compiled.JS.Map, preMap)
		if err != nil {
			return p.fail(res, display, StageEmit, err, warnings, []diag.Diagnostic{diag.NewError(diag.CompileFailed, err.Error())})
		}
		m = sourcemap.Repair(composed, sourcemap.RepairInput{
			Basename: file.Base(),
			Original: file.Text(),
			Dir:      file.Dir(),
			ReadFile: source.ReadOptional,
		})
	}
	res.Contents = sourcemap.JSComment(compiled.JS.Code, m, !p.cfg.Sourcemap.JS)
	warnings.AddAll(tr.Translate(diag.SevWarning, compiler.Messages(compiled.Warnings)...))
	res.Warnings = warnings.Items()
	res.Timings.Set(StageEmit, time.Since(start))
	return res
}

// translator positions findings in file. Map sources other than the file
// itself, such as an external script, resolve next to it.
func (p *Pipeline) translator(file *source.File, code string, m *sourcemap.Map) *diag.Translator {
	tr := diag.NewTranslator(file.Display, code, m)
	tr.Source = file.Base()
	tr.External = func(src string) (string, string) {
		path := source.ResolveRef(file.Path, src)
		text, _ := source.ReadOptional(path)
		return displayOf(p.cfg.Root, path), text
	}
	return tr
}
