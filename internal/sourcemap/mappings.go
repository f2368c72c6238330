package sourcemap

import (
	"fmt"
	"slices"
	"strings"
)

// Segment is one decoded mapping. Fields counts the encoded fields (1, 4 or 5);
// a one-field segment maps generated text to nothing.
type Segment struct {
	GenCol   int
	Source   int
	OrigLine int // 0-based
	OrigCol  int // 0-based
	Name     int
	Fields   uint8
}

// HasSource reports whether the segment points into a source.
func (s Segment) HasSource() bool { return s.Fields >= 4 }

// HasName reports whether the segment carries a name index.
func (s Segment) HasName() bool { return s.Fields == 5 }

// Lines holds decoded segments per generated line (0-based), each line
// sorted by GenCol.
type Lines [][]Segment

// Decode parses a mappings string.
func Decode(mappings string) (Lines, error) {
	lines := make(Lines, 0, strings.Count(mappings, ";")+1)
	var src, origLine, origCol, name int
	line := []Segment(nil)
	genCol := 0
	for i := 0; i <= len(mappings); {
		if i == len(mappings) || mappings[i] == ';' {
			sortLine(line)
			lines = append(lines, line)
			line = nil
			genCol = 0
			i++
			continue
		}
		if mappings[i] == ',' {
			i++
			continue
		}

		var fields [5]int
		n := 0
		for n < 5 && i < len(mappings) && mappings[i] != ',' && mappings[i] != ';' {
			v, next, err := readVLQ(mappings, i)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", len(lines)+1, err)
			}
			fields[n] = v
			n++
			i = next
		}
		if i < len(mappings) && mappings[i] != ',' && mappings[i] != ';' {
			return nil, fmt.Errorf("line %d: segment has more than 5 fields", len(lines)+1)
		}
		if n != 1 && n != 4 && n != 5 {
			return nil, fmt.Errorf("line %d: segment has %d fields", len(lines)+1, n)
		}

		genCol += fields[0]
		seg := Segment{GenCol: genCol, Fields: uint8(n)}
		if n >= 4 {
			src += fields[1]
			origLine += fields[2]
			origCol += fields[3]
			seg.Source, seg.OrigLine, seg.OrigCol = src, origLine, origCol
		}
		if n == 5 {
			name += fields[4]
			seg.Name = name
		}
		line = append(line, seg)
	}
	return lines, nil
}

func sortLine(line []Segment) {
	slices.SortStableFunc(line, func(a, b Segment) int { return a.GenCol - b.GenCol })
}

// Encode renders decoded lines back into a mappings string.
func Encode(lines Lines) string {
	var b strings.Builder
	var src, origLine, origCol, name int
	for li, line := range lines {
		if li > 0 {
			b.WriteByte(';')
		}
		genCol := 0
		for si, seg := range line {
			if si > 0 {
				b.WriteByte(',')
			}
			writeVLQ(&b, seg.GenCol-genCol)
			genCol = seg.GenCol
			if !seg.HasSource() {
				continue
			}
			writeVLQ(&b, seg.Source-src)
			writeVLQ(&b, seg.OrigLine-origLine)
			writeVLQ(&b, seg.OrigCol-origCol)
			src, origLine, origCol = seg.Source, seg.OrigLine, seg.OrigCol
			if seg.HasName() {
				writeVLQ(&b, seg.Name-name)
				name = seg.Name
			}
		}
	}
	return b.String()
}

// Find returns the segment on line covering col: the last one whose GenCol
// is not after col.
func (l Lines) Find(line, col int) (Segment, bool) {
	if line < 0 || line >= len(l) {
		return Segment{}, false
	}
	segs := l[line]
	i, found := slices.BinarySearchFunc(segs, col, func(s Segment, c int) int { return s.GenCol - c })
	if found {
		// несколько сегментов с одной колонкой: берём последний
		for i+1 < len(segs) && segs[i+1].GenCol == col {
			i++
		}
		return segs[i], true
	}
	if i == 0 {
		return Segment{}, false
	}
	return segs[i-1], true
}
