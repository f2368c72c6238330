package sourcemap

import "fmt"

// Compose folds two transform stages together. outer maps final text to an
// intermediate buffer, inner maps that buffer to its own sources.
//
// Outer segments pointing at the intermediate buffer (inner.File, or every
// outer source when inner.File is empty) are traced through inner; a
// segment inner cannot place is dropped. Segments pointing elsewhere are
// kept as they are. Columns inside a traced segment keep their offset from
// the inner segment start, so untouched text maps byte for byte.
func Compose(outer, inner *Map) (*Map, error) {
	if outer == nil {
		return inner.Clone(), nil
	}
	if inner == nil {
		return outer.Clone(), nil
	}
	outerLines, err := Decode(outer.Mappings)
	if err != nil {
		return nil, fmt.Errorf("outer map: %w", err)
	}
	innerLines, err := Decode(inner.Mappings)
	if err != nil {
		return nil, fmt.Errorf("inner map: %w", err)
	}

	b := NewBuilder(outer.File)
	traced := func(src int) bool {
		if inner.File == "" {
			return true
		}
		return src < len(outer.Sources) && outer.Sources[src] == inner.File
	}

	for genLine, line := range outerLines {
		for _, seg := range line {
			if !seg.HasSource() {
				continue
			}
			if !traced(seg.Source) {
				if seg.Source >= len(outer.Sources) {
					continue
				}
				out := seg
				out.Source = b.Source(outer.Sources[seg.Source])
				if content, ok := outer.Content(seg.Source); ok {
					b.SetContent(out.Source, content)
				}
				if seg.HasName() {
					if seg.Name < len(outer.Names) {
						out.Name = b.Name(outer.Names[seg.Name])
					} else {
						out.Fields = 4
					}
				}
				b.AddSegment(genLine, out)
				continue
			}

			hit, ok := innerLines.Find(seg.OrigLine, seg.OrigCol)
			if !ok || !hit.HasSource() || hit.Source >= len(inner.Sources) {
				continue
			}
			out := Segment{
				GenCol:   seg.GenCol,
				Source:   b.Source(inner.Sources[hit.Source]),
				OrigLine: hit.OrigLine,
				OrigCol:  hit.OrigCol + (seg.OrigCol - hit.GenCol),
				Fields:   4,
			}
			if content, ok := inner.Content(hit.Source); ok {
				b.SetContent(out.Source, content)
			}
			switch {
			case seg.HasName() && seg.Name < len(outer.Names):
				out.Name, out.Fields = b.Name(outer.Names[seg.Name]), 5
			case hit.HasName() && hit.Name < len(inner.Names):
				out.Name, out.Fields = b.Name(inner.Names[hit.Name]), 5
			}
			b.AddSegment(genLine, out)
		}
	}
	// trailing empty lines keep the generated line count
	b.line(len(outerLines) - 1)
	return b.Build(), nil
}
