// Package compilertest provides a deterministic stand-in for the component
// compiler.
package compilertest

import (
	"context"
	"path"
	"regexp"
	"strings"
	"sync"

	"esvelte/internal/compiler"
	"esvelte/internal/source"
	"esvelte/internal/sourcemap"
)

var (
	scriptRe = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script\s*>`)
	styleRe  = regexp.MustCompile(`(?s)<style[^>]*>(.*?)</style\s*>`)
)

// Fake "compiles" a component by copying its script block into a module
// body and its style block into the stylesheet output. Script and style
// lines are mapped back to the input, then folded through the input map the
// way the real compiler does.
type Fake struct {
	// Warnings are reported by every Compile call.
	Warnings []compiler.Warning
	// Fail, when set, is returned instead of a result.
	Fail error
	// ModuleWarnings are reported by CompileModule.
	ModuleWarnings []compiler.Warning

	mu    sync.Mutex
	calls []Call
}

// Call records one Compile invocation.
type Call struct {
	Code    string
	Options compiler.Options
}

// Calls returns the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Compile implements compiler.Compiler.
func (f *Fake) Compile(ctx context.Context, code string, opts compiler.Options) (*compiler.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Code: code, Options: opts})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Fail != nil {
		return nil, f.Fail
	}

	base := path.Base(opts.Filename)
	file := source.New(base, "", []byte(code))
	res := &compiler.Result{Warnings: append([]compiler.Warning(nil), f.Warnings...)}

	var js strings.Builder
	b := sourcemap.NewBuilder(base + ".js")
	src := b.Source(base)
	js.WriteString("// " + string(opts.Generate) + "\n")
	genLine := 1
	markup := 0
	if m := scriptRe.FindStringSubmatchIndex(code); m != nil {
		genLine = copyLines(&js, b, src, file, code[m[2]:m[3]], m[2], genLine)
		markup = m[1]
	}
	// the component function stands for the markup after the script
	if markup < len(code) {
		pos := file.Resolve(markup)
		b.Add(genLine, 0, src, int(pos.Line)-1, int(pos.Col))
	}
	js.WriteString("export default function Component() {}\n")
	jsMap, err := fold(b.Build(), opts.Sourcemap)
	if err != nil {
		return nil, err
	}
	res.JS = compiler.Output{Code: js.String(), Map: jsMap}

	if m := styleRe.FindStringSubmatchIndex(code); m != nil && opts.CSS != compiler.CSSInjected {
		var css strings.Builder
		cb := sourcemap.NewBuilder(base + ".css")
		copyLines(&css, cb, cb.Source(base), file, code[m[2]:m[3]], m[2], 0)
		cssMap, err := fold(cb.Build(), opts.Sourcemap)
		if err != nil {
			return nil, err
		}
		res.CSS = &compiler.Output{Code: css.String(), Map: cssMap}
	}
	return res, nil
}

// CompileModule implements compiler.Compiler; the module body passes through.
func (f *Fake) CompileModule(ctx context.Context, code string, opts compiler.ModuleOptions) (*compiler.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Fail != nil {
		return nil, f.Fail
	}
	return &compiler.Result{
		JS:       compiler.Output{Code: code},
		Warnings: append([]compiler.Warning(nil), f.ModuleWarnings...),
	}, nil
}

// copyLines writes text line by line, mapping the first column of each line
// to where it sits in file, and returns the next generated line.
func copyLines(out *strings.Builder, b *sourcemap.Builder, src int, file *source.File, text string, offset, genLine int) int {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		pos := file.Resolve(offset)
		b.Add(genLine, 0, src, int(pos.Line)-1, int(pos.Col))
		out.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			out.WriteByte('\n')
		}
		offset += len(line)
		genLine++
	}
	return genLine
}

func fold(m, input *sourcemap.Map) (*sourcemap.Map, error) {
	if input == nil {
		return m, nil
	}
	return sourcemap.Compose(m, input)
}
