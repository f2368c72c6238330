package sourcemap

// Builder accumulates segments and sources into a Map.
type Builder struct {
	file    string
	sources []string
	content []*string
	index   map[string]int
	names   []string
	nameIdx map[string]int
	lines   Lines
}

// NewBuilder starts a map for the generated file name.
func NewBuilder(file string) *Builder {
	return &Builder{
		file:    file,
		index:   make(map[string]int),
		nameIdx: make(map[string]int),
	}
}

// Source registers a source and returns its index.
func (b *Builder) Source(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	i := len(b.sources)
	b.sources = append(b.sources, name)
	b.content = append(b.content, nil)
	b.index[name] = i
	return i
}

// SetContent embeds text for a registered source.
func (b *Builder) SetContent(src int, text string) {
	b.content[src] = strPtr(text)
}

// Name registers a symbol name and returns its index.
func (b *Builder) Name(name string) int {
	if i, ok := b.nameIdx[name]; ok {
		return i
	}
	i := len(b.names)
	b.names = append(b.names, name)
	b.nameIdx[name] = i
	return i
}

func (b *Builder) line(n int) {
	for len(b.lines) <= n {
		b.lines = append(b.lines, nil)
	}
}

// Add maps generated (line, col) to (src, origLine, origCol). Lines are 0-based.
func (b *Builder) Add(genLine, genCol, src, origLine, origCol int) {
	b.line(genLine)
	b.lines[genLine] = append(b.lines[genLine], Segment{
		GenCol: genCol, Source: src, OrigLine: origLine, OrigCol: origCol, Fields: 4,
	})
}

// AddSegment appends an already-built segment to the generated line.
func (b *Builder) AddSegment(genLine int, seg Segment) {
	b.line(genLine)
	b.lines[genLine] = append(b.lines[genLine], seg)
}

// Build returns the map; segments on each line are sorted by column.
func (b *Builder) Build() *Map {
	for _, l := range b.lines {
		sortLine(l)
	}
	m := &Map{
		Version:  3,
		File:     b.file,
		Sources:  append([]string{}, b.sources...),
		Names:    append([]string{}, b.names...),
		Mappings: Encode(b.lines),
	}
	for _, c := range b.content {
		if c != nil {
			m.SourcesContent = append([]*string{}, b.content...)
			break
		}
	}
	return m
}
