package preprocess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"esvelte/internal/diag"
	"esvelte/internal/source"
)

// TypeScriptOptions configures the TypeScript group.
type TypeScriptOptions struct {
	// CompilerOptions are merged into tsconfigRaw.compilerOptions.
	CompilerOptions map[string]any
	// Root makes warning file names relative.
	Root        string
	Transformer Transformer
	OnWarn      func(diag.Diagnostic)
}

// TypeScript returns the group that strips types from TS script blocks.
func TypeScript(opts TypeScriptOptions) Group {
	if opts.Transformer == nil {
		opts.Transformer = EsbuildTransformer{}
	}
	return Group{
		Name: "typescript",
		Script: func(ctx context.Context, in BlockInput) (*Processed, error) {
			return transformScript(ctx, opts, in)
		},
	}
}

// IsTypeScript reports whether a script block holds TypeScript.
func IsTypeScript(attrs Attributes) bool {
	switch strings.ToLower(attrs["lang"]) {
	case "ts", "typescript":
		return true
	}
	switch strings.ToLower(attrs["type"]) {
	case "text/typescript", "application/typescript":
		return true
	}
	return false
}

// TsconfigRaw renders the tsconfig handed to esbuild. Imports are kept
// verbatim: markup may use names the script only imports.
func TsconfigRaw(compilerOptions map[string]any) (string, error) {
	co := map[string]any{"verbatimModuleSyntax": true}
	for k, v := range compilerOptions {
		co[k] = v
	}
	raw, err := json.Marshal(map[string]any{"compilerOptions": co})
	if err != nil {
		return "", fmt.Errorf("tsconfig: %w", err)
	}
	return string(raw), nil
}

func transformScript(ctx context.Context, opts TypeScriptOptions, in BlockInput) (*Processed, error) {
	if !IsTypeScript(in.Attributes) {
		return nil, nil
	}
	display := source.DisplayPath(in.Filename, opts.Root)
	content := in.Content
	sourcefile := filepath.Base(in.Filename)
	external := ""
	var deps []string

	if in.Attributes.Has("src") && in.Attributes["src"] != "" {
		ref := source.ResolveRef(in.Filename, in.Attributes["src"])
		if text, ok := source.ReadOptional(ref); ok {
			content = text
			deps = append(deps, ref)
			external = source.DisplayPath(ref, opts.Root)
			sourcefile = relTo(filepath.Dir(in.Filename), ref)
		} else {
			warn(opts, diag.NewWarning(diag.ScriptSrcMissing,
				fmt.Sprintf("Could not find %q from %q", ref, display), diag.At(display)))
		}
	}

	tsconfig, err := TsconfigRaw(opts.CompilerOptions)
	if err != nil {
		return nil, err
	}
	r, err := opts.Transformer.Transform(ctx, content, TransformOptions{Sourcefile: sourcefile, TsconfigRaw: tsconfig})
	if err != nil {
		var te *TransformError
		if errors.As(err, &te) {
			for i := range te.Diagnostics {
				reattribute(&te.Diagnostics[i], in, display, external)
			}
		}
		return nil, err
	}
	for _, w := range r.Warnings {
		reattribute(&w, in, display, external)
		warn(opts, w)
	}
	return &Processed{Code: r.Code, Map: r.Map, Dependencies: deps}, nil
}

// reattribute points a transform finding at the authored file. Findings in
// inline content are shifted by the block's position in the component.
func reattribute(d *diag.Diagnostic, in BlockInput, display, external string) {
	if d.Location == nil {
		return
	}
	loc := *d.Location
	if external != "" {
		loc.File = external
		d.Location = &loc
		return
	}
	loc.File = display
	if loc.Line == 1 {
		loc.Column += int(in.Start.Col)
	}
	loc.Line += int(in.Start.Line) - 1
	lines := source.SplitLines(in.Markup)
	if loc.Line >= 1 && loc.Line <= len(lines) {
		loc.LineText = lines[loc.Line-1]
	}
	d.Location = &loc
}

func warn(opts TypeScriptOptions, d diag.Diagnostic) {
	if opts.OnWarn != nil {
		opts.OnWarn(d)
	}
}

func relTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
