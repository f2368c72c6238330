package preprocess

import (
	"context"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"esvelte/internal/diag"
	"esvelte/internal/sourcemap"
)

// Transformer strips TypeScript. The esbuild implementation is the default;
// tests and embedders may swap it.
type Transformer interface {
	Transform(ctx context.Context, code string, opts TransformOptions) (*TransformResult, error)
}

type TransformOptions struct {
	Sourcefile  string
	TsconfigRaw string
	// Module transforms a whole .svelte.ts file with the transformer's
	// base options.
	Module bool
}

type TransformResult struct {
	Code     string
	Map      *sourcemap.Map
	Warnings []diag.Diagnostic
}

// TransformError carries the transform's errors in the transformed
// file's coordinates.
type TransformError struct {
	Diagnostics []diag.Diagnostic
}

func (e *TransformError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "transform failed"
	}
	return e.Diagnostics[0].Text
}

// DiagnosticMessage exposes the first error's position.
func (e *TransformError) DiagnosticMessage() diag.Message {
	msg := diag.Message{Code: diag.TransformFailed, Text: e.Error()}
	if len(e.Diagnostics) == 0 || e.Diagnostics[0].Location == nil {
		return msg
	}
	loc := e.Diagnostics[0].Location
	msg.Filename = loc.File
	msg.Start = &diag.Point{Line: loc.Line, Column: loc.Column, Character: -1}
	msg.End = &diag.Point{Line: loc.Line, Column: loc.Column + loc.Length, Character: -1}
	return msg
}

// EsbuildTransformer runs api.Transform in process.
type EsbuildTransformer struct {
	// Base seeds module transforms, usually derived from the build's
	// initial options.
	Base api.TransformOptions
}

func (t EsbuildTransformer) Transform(ctx context.Context, code string, opts TransformOptions) (*TransformResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := api.TransformOptions{Charset: api.CharsetUTF8}
	if opts.Module {
		o = t.Base
	}
	o.Sourcemap = api.SourceMapExternal
	o.Loader = api.LoaderTS
	o.Sourcefile = opts.Sourcefile
	if opts.TsconfigRaw != "" {
		o.TsconfigRaw = opts.TsconfigRaw
	}

	r := api.Transform(code, o)
	if len(r.Errors) > 0 {
		return nil, &TransformError{Diagnostics: fromMessages(diag.SevError, diag.TransformFailed, r.Errors)}
	}
	out := &TransformResult{
		Code:     string(r.Code),
		Warnings: fromMessages(diag.SevWarning, diag.TransformWarning, r.Warnings),
	}
	if len(r.Map) > 0 {
		m, err := sourcemap.Parse(r.Map)
		if err != nil {
			return nil, fmt.Errorf("esbuild sourcemap: %w", err)
		}
		out.Map = m
	}
	return out, nil
}

func fromMessages(sev diag.Severity, code diag.Code, msgs []api.Message) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := diag.New(sev, code, m.Text, nil)
		if l := m.Location; l != nil {
			d.Location = &diag.Location{
				File:     l.File,
				Line:     l.Line,
				Column:   l.Column,
				Length:   l.Length,
				LineText: l.LineText,
			}
		}
		out = append(out, d)
	}
	return out
}
