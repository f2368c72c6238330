package sourcemap

import (
	"fmt"

	gosourcemap "github.com/go-sourcemap/sourcemap"
)

// Position is a location in an original source.
type Position struct {
	Source string
	Line   int // 1-based
	Column int // 0-based
}

// Locator answers original positions for generated ones.
type Locator interface {
	Original(line, column int) (Position, bool)
}

type consumerLocator struct {
	c *gosourcemap.Consumer
}

// NewLocator prepares m for position lookups.
func NewLocator(m *Map) (Locator, error) {
	if m == nil {
		return nil, fmt.Errorf("nil sourcemap")
	}
	c, err := gosourcemap.Parse("", m.JSON())
	if err != nil {
		return nil, fmt.Errorf("load sourcemap: %w", err)
	}
	return consumerLocator{c: c}, nil
}

// Original maps a 1-based line and 0-based column of generated text.
func (l consumerLocator) Original(line, column int) (Position, bool) {
	src, _, origLine, origCol, ok := l.c.Source(line, column)
	if !ok || src == "" {
		return Position{}, false
	}
	return Position{Source: src, Line: origLine, Column: origCol}, true
}
