package preprocess

import (
	"context"

	"esvelte/internal/source"
	"esvelte/internal/sourcemap"
)

// Attributes of a <script> or <style> tag. Valueless attributes map to "".
type Attributes map[string]string

// Has reports whether the attribute is present.
func (a Attributes) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// BlockInput is handed to script and style preprocessors.
type BlockInput struct {
	Content    string
	Attributes Attributes
	// Markup is the whole component text at the time the block is processed.
	Markup   string
	Filename string
	// Start is where Content begins in Markup.
	Start source.LineCol
}

// MarkupInput is handed to markup preprocessors.
type MarkupInput struct {
	Content  string
	Filename string
}

// Processed is a preprocessor's output. Map maps Code back to the input
// content; sources other than the component's basename name external files.
type Processed struct {
	Code         string
	Map          *sourcemap.Map
	Dependencies []string
}

// BlockFunc processes one block; a nil result leaves the block unchanged.
type BlockFunc func(ctx context.Context, in BlockInput) (*Processed, error)

// MarkupFunc processes the whole component; a nil result leaves it unchanged.
type MarkupFunc func(ctx context.Context, in MarkupInput) (*Processed, error)

// Group bundles the hooks of one preprocessor. Any hook may be nil.
type Group struct {
	Name   string
	Markup MarkupFunc
	Script BlockFunc
	Style  BlockFunc
}

// Result is the preprocessed component.
type Result struct {
	Code string
	// Map maps Code to the authored file; nil when nothing changed.
	Map *sourcemap.Map
	// Dependencies lists extra files to watch, in discovery order.
	Dependencies []string
}
