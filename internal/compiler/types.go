package compiler

import (
	"context"
	"fmt"

	"esvelte/internal/diag"
	"esvelte/internal/sourcemap"
)

// Generate selects the runtime the compiled script targets.
type Generate string

const (
	GenerateClient Generate = "client"
	GenerateServer Generate = "server"
)

// CSSMode selects how component styles leave the compiler.
type CSSMode string

const (
	// CSSExternal returns styles separately in Result.CSS.
	CSSExternal CSSMode = "external"
	// CSSInjected inlines styles into the script output.
	CSSInjected CSSMode = "injected"
)

// Options configures one component compilation.
type Options struct {
	Filename      string
	Generate      Generate
	Dev           bool
	CSS           CSSMode
	CustomElement bool
	Runes         *bool
	// Sourcemap maps the input text to the authored file; the compiler folds
	// its own output map through it.
	Sourcemap *sourcemap.Map
	// Extra is passed through to the compiler verbatim.
	Extra map[string]any
}

// ModuleOptions configures compilation of a rune module (.svelte.js/.svelte.ts).
type ModuleOptions struct {
	Filename string
	Generate Generate
	Dev      bool
}

// Output is one emitted artifact.
type Output struct {
	Code string
	Map  *sourcemap.Map
}

// Position is a compiler-reported point.
type Position struct {
	Line      int `json:"line"`
	Column    int `json:"column"`
	Character int `json:"character"`
}

// Warning is a non-fatal compiler finding positioned in input coordinates.
type Warning struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Filename string    `json:"filename,omitempty"`
	Start    *Position `json:"start,omitempty"`
	End      *Position `json:"end,omitempty"`
}

// Result is everything one compilation produced.
type Result struct {
	JS       Output
	CSS      *Output
	Warnings []Warning
}

// Compiler is the component compilation capability. Implementations are
// pure: the same input yields the same result and nothing is retried.
type Compiler interface {
	Compile(ctx context.Context, code string, opts Options) (*Result, error)
	CompileModule(ctx context.Context, code string, opts ModuleOptions) (*Result, error)
}

// Error is a compilation failure, positioned when the compiler knows where.
type Error struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Filename string    `json:"filename,omitempty"`
	Start    *Position `json:"start,omitempty"`
	End      *Position `json:"end,omitempty"`
}

func (e *Error) Error() string {
	if e.Start != nil {
		return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Start.Line, e.Start.Column, e.Message)
	}
	return e.Message
}

// DiagnosticMessage exposes the failure to diag.Translator.
func (e *Error) DiagnosticMessage() diag.Message {
	return diag.Message{
		Code:     diag.Code(e.Code),
		Text:     e.Message,
		Filename: e.Filename,
		Start:    toPoint(e.Start),
		End:      toPoint(e.End),
	}
}

// DiagnosticMessage converts the warning for diag.Translator.
func (w Warning) DiagnosticMessage() diag.Message {
	return diag.Message{
		Code:     diag.Code(w.Code),
		Text:     w.Message,
		Filename: w.Filename,
		Start:    toPoint(w.Start),
		End:      toPoint(w.End),
	}
}

// Messages converts a warning list in order.
func Messages(ws []Warning) []diag.Message {
	out := make([]diag.Message, len(ws))
	for i, w := range ws {
		out[i] = w.DiagnosticMessage()
	}
	return out
}

func toPoint(p *Position) *diag.Point {
	if p == nil {
		return nil
	}
	return &diag.Point{Line: p.Line, Column: p.Column, Character: p.Character}
}
