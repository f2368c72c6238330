package sourcemap

import (
	"path/filepath"
)

// RepairInput describes the component a compiled map belongs to.
type RepairInput struct {
	// Basename is the component's file name as the compiler reports it in sources.
	Basename string
	// Original is the authored component text.
	Original string
	// Dir is the component's directory; other sources are resolved against it.
	Dir string
	// ReadFile loads another source; false leaves its slot null.
	ReadFile func(path string) (string, bool)
	// Suffix is appended to every source name, e.g. "?style.css".
	Suffix string
}

// Repair fills sourcesContent so the map resolves to authored files instead
// of intermediate buffers. The component's own entry gets the original text,
// other entries are read from disk relative to Dir or set to null. Mappings
// are never touched.
func Repair(m *Map, in RepairInput) *Map {
	if m == nil {
		return nil
	}
	out := m.Clone()
	out.SourcesContent = make([]*string, len(out.Sources))
	for i, src := range out.Sources {
		switch {
		case src == in.Basename:
			out.SourcesContent[i] = strPtr(in.Original)
		case in.ReadFile != nil:
			path := src
			if !filepath.IsAbs(path) {
				path = filepath.Join(in.Dir, filepath.FromSlash(src))
			}
			if text, ok := in.ReadFile(path); ok {
				out.SourcesContent[i] = strPtr(text)
			}
		}
		if in.Suffix != "" {
			out.Sources[i] = src + in.Suffix
		}
	}
	return out
}
