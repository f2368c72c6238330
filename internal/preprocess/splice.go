package preprocess

import (
	"strings"

	"esvelte/internal/source"
	"esvelte/internal/sourcemap"
)

// splicer rebuilds a text from kept ranges and replacements while recording
// enough to emit a map from the new text to the old one.
type splicer struct {
	old     string
	base    string
	out     strings.Builder
	keeps   []keptRange
	inserts []insert
}

type keptRange struct {
	from, to int // old offsets
	at       int // new offset
}

type insert struct {
	at      int // new offset where code starts
	origin  int // old offset the content started at
	code    string
	content string
	m       *sourcemap.Map
}

func newSplicer(old, base string) *splicer {
	return &splicer{old: old, base: base}
}

func (s *splicer) keep(from, to int) {
	if from >= to {
		return
	}
	s.keeps = append(s.keeps, keptRange{from: from, to: to, at: s.out.Len()})
	s.out.WriteString(s.old[from:to])
}

func (s *splicer) write(text string) {
	s.out.WriteString(text)
}

func (s *splicer) replace(origin int, content string, p *Processed) {
	s.inserts = append(s.inserts, insert{at: s.out.Len(), origin: origin, code: p.Code, content: content, m: p.Map})
	s.out.WriteString(p.Code)
}

func (s *splicer) text() string {
	return s.out.String()
}

// stageMap maps the spliced text back to the old text.
func (s *splicer) stageMap() *sourcemap.Map {
	newFile := source.New(s.base, "", []byte(s.out.String()))
	oldFile := source.New(s.base, "", []byte(s.old))
	b := sourcemap.NewBuilder(s.base)
	src := b.Source(s.base)

	for _, k := range s.keeps {
		for _, off := range boundaries(s.old, k.from, k.to) {
			g := newFile.Resolve(k.at + off - k.from)
			o := oldFile.Resolve(off)
			b.Add(int(g.Line)-1, int(g.Col), src, int(o.Line)-1, int(o.Col))
		}
	}
	for _, in := range s.inserts {
		g := newFile.Resolve(in.at)
		o := oldFile.Resolve(in.origin)
		if in.m == nil || !s.rebase(b, src, in.m, g, o) {
			mapLineStarts(b, src, in, g, o)
		}
	}
	return b.Build()
}

// rebase shifts a block's own map into whole-file coordinates. Segments on
// the block's first line move by the block's column as well as its line.
func (s *splicer) rebase(b *sourcemap.Builder, src int, m *sourcemap.Map, g, o source.LineCol) bool {
	lines, err := sourcemap.Decode(m.Mappings)
	if err != nil {
		return false
	}
	gLine, gCol := int(g.Line)-1, int(g.Col)
	oLine, oCol := int(o.Line)-1, int(o.Col)
	for li, line := range lines {
		for _, seg := range line {
			if !seg.HasSource() || seg.Source >= len(m.Sources) {
				continue
			}
			out := sourcemap.Segment{GenCol: seg.GenCol, Fields: 4}
			if li == 0 {
				out.GenCol += gCol
			}
			name := m.Sources[seg.Source]
			if s.inline(name) {
				out.Source = src
				out.OrigLine = oLine + seg.OrigLine
				out.OrigCol = seg.OrigCol
				if seg.OrigLine == 0 {
					out.OrigCol += oCol
				}
			} else {
				out.Source = b.Source(name)
				if content, ok := m.Content(seg.Source); ok {
					b.SetContent(out.Source, content)
				}
				out.OrigLine, out.OrigCol = seg.OrigLine, seg.OrigCol
			}
			if seg.HasName() && seg.Name < len(m.Names) {
				out.Name, out.Fields = b.Name(m.Names[seg.Name]), 5
			}
			b.AddSegment(gLine+li, out)
		}
	}
	return true
}

func (s *splicer) inline(name string) bool {
	return name == "" || name == s.base || name == "<stdin>"
}

// mapLineStarts is the fallback for replacements without a map: every line
// of the new code maps to the start of the matching content line.
func mapLineStarts(b *sourcemap.Builder, src int, in insert, g, o source.LineCol) {
	codeLines := len(source.SplitLines(in.code))
	contentLines := len(source.SplitLines(in.content))
	for i := 0; i < codeLines; i++ {
		line := min(i, contentLines-1)
		genCol, origCol := 0, 0
		if i == 0 {
			genCol = int(g.Col)
		}
		if line == 0 {
			origCol = int(o.Col)
		}
		b.Add(int(g.Line)-1+i, genCol, src, int(o.Line)-1+line, origCol)
	}
}

// boundaries lists offsets in text[from:to] worth a mapping: the range
// start, every line start, every word start and every punctuation mark.
func boundaries(text string, from, to int) []int {
	out := []int{from}
	for i := from + 1; i < to; i++ {
		prev, c := text[i-1], text[i]
		switch {
		case prev == '\n' || (prev == '\r' && c != '\n'):
			out = append(out, i)
		case isSpace(c):
		case isSpace(prev) || isPunct(c) || isPunct(prev):
			out = append(out, i)
		}
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isPunct(c byte) bool {
	return strings.IndexByte("<>{}()[]=;,:.\"'`/", c) >= 0
}
