package pipeline

import (
	"context"

	"go.uber.org/zap"

	"esvelte/internal/compiler"
	"esvelte/internal/preprocess"
)

// SourcemapConfig enables maps per output kind. A disabled kind still
// gets the empty sourcemap comment.
type SourcemapConfig struct {
	JS  bool
	CSS bool
}

// DynamicInput is what a per-file options hook sees.
type DynamicInput struct {
	Filename string
	// Code is the preprocessed component text.
	Code    string
	Options compiler.Options
}

// DynamicFunc adjusts compile options for one file. It receives a copy and
// returns the options to compile with.
type DynamicFunc func(ctx context.Context, in DynamicInput) (compiler.Options, error)

// Config wires a Pipeline. Compiler is required; everything else has a
// usable zero value except that EmitCSS and Sourcemap default to off.
type Config struct {
	// Root is the project directory file names are reported relative to.
	Root     string
	Compiler compiler.Compiler
	// Preprocess runs before the TypeScript group.
	Preprocess        []preprocess.Group
	DisableTypeScript bool
	// TypeScript holds tsconfig compilerOptions for the TypeScript group.
	TypeScript map[string]any
	EmitCSS    bool
	// CompileOptions is the base for every file; Filename and Sourcemap
	// are filled in per file.
	CompileOptions compiler.Options
	Dynamic        DynamicFunc
	Sourcemap      SourcemapConfig
	Transformer    preprocess.Transformer
	Logger         *zap.Logger
	Progress       ProgressSink
}
