package sourcemap

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// EmptyDataURL is attached when sourcemaps are disabled but the host still
// expects a sourceMappingURL comment.
const EmptyDataURL = "data:application/json;base64,eyJ2ZXJzaW9uIjozLCJzb3VyY2VzIjpbIiJdLCJtYXBwaW5ncyI6IkEifQ=="

// Map is a version 3 sourcemap.
//
// SourcesContent holds pointers so that an unrecoverable slot serialises as
// an explicit null and stays index-aligned with Sources.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Parse decodes a JSON sourcemap.
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse sourcemap: %w", err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("unsupported sourcemap version %d", m.Version)
	}
	return &m, nil
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := *m
	out.Sources = slices.Clone(m.Sources)
	out.Names = slices.Clone(m.Names)
	if m.SourcesContent != nil {
		out.SourcesContent = make([]*string, len(m.SourcesContent))
		for i, c := range m.SourcesContent {
			if c != nil {
				s := *c
				out.SourcesContent[i] = &s
			}
		}
	}
	return &out
}

// JSON serialises the map.
func (m *Map) JSON() []byte {
	out := *m
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// embedded sources are markup, keep < > & readable
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		// every field is a plain string or slice of strings
		panic(fmt.Errorf("marshal sourcemap: %w", err))
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
}

// String returns the JSON form.
func (m *Map) String() string {
	return string(m.JSON())
}

// DataURL renders the map as a base64 data URL.
func (m *Map) DataURL() string {
	return "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(m.JSON())
}

// Content returns the embedded content for source index i.
func (m *Map) Content(i int) (string, bool) {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
		return "", false
	}
	return *m.SourcesContent[i], true
}

// JSComment appends a trailing sourceMappingURL line comment to code. A nil
// map with disabled sourcemaps gets the empty map; a nil map otherwise gets
// no comment at all.
func JSComment(code string, m *Map, disabled bool) string {
	switch {
	case m != nil:
		return code + "\n//# sourceMappingURL=" + m.DataURL() + "\n"
	case disabled:
		return code + "\n//# sourceMappingURL=" + EmptyDataURL + "\n"
	default:
		return code
	}
}

// CSSComment is JSComment for stylesheets.
func CSSComment(code string, m *Map, disabled bool) string {
	switch {
	case m != nil:
		return code + "\n/*# sourceMappingURL=" + m.DataURL() + " */\n"
	case disabled:
		return code + "\n/*# sourceMappingURL=" + EmptyDataURL + " */\n"
	default:
		return code
	}
}

// DecodeDataURL extracts the map from a sourceMappingURL data URL.
func DecodeDataURL(url string) (*Map, error) {
	const marker = ";base64,"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return nil, fmt.Errorf("not a base64 data url")
	}
	raw, err := base64.StdEncoding.DecodeString(url[idx+len(marker):])
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return Parse(raw)
}

func strPtr(s string) *string { return &s }
