package cssreg

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Style identifies a component's stylesheet module.
type Style struct {
	// ID is the import specifier appended to the component's script.
	ID string
	// Key locates the entry in the registry.
	Key string
}

// StyleFor derives the style module of the component at path (absolute),
// loaded with the given suffix (e.g. "?raw" or ""). The ID is stable:
// the same path and suffix always yield the same ID.
func StyleFor(path, suffix string) Style {
	q := styleQuery(suffix)
	return Style{
		ID:  "./" + basename(path) + "?" + q,
		Key: Key(path, q),
	}
}

// Key joins an absolute component path and a style query.
func Key(path, query string) string {
	return filepath.Clean(path) + "?" + query
}

// KeyForImport maps a style specifier seen at resolve time back to the
// registry key. ok is false for specifiers that are not style modules.
func KeyForImport(specifier, resolveDir string) (key string, path string, ok bool) {
	file, query, found := strings.Cut(specifier, "?")
	if !found || !IsStyleQuery(query) {
		return "", "", false
	}
	path = filepath.FromSlash(file)
	if !filepath.IsAbs(path) {
		path = filepath.Join(resolveDir, path)
	}
	return Key(path, query), filepath.Clean(path), true
}

// IsStyleQuery reports whether a query marks a component style module.
func IsStyleQuery(query string) bool {
	p := parseQuery(strings.TrimPrefix(query, "?"))
	_, svelte := p.get("svelte")
	typ, _ := p.get("type")
	return svelte && typ == "style"
}

// styleQuery keeps the component's own query and marks it as a style.
func styleQuery(suffix string) string {
	p := parseQuery(strings.TrimPrefix(suffix, "?"))
	p.set("svelte", "")
	p.set("type", "style")
	p.set("lang.css", "")
	return p.encode()
}

type pair struct{ k, v string }

type query []pair

func parseQuery(raw string) query {
	var q query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		q = append(q, pair{k, v})
	}
	return q
}

func (q query) get(k string) (string, bool) {
	for _, p := range q {
		if p.k == k {
			return p.v, true
		}
	}
	return "", false
}

// set replaces the first k and drops the rest, or appends.
func (q *query) set(k, v string) {
	out := (*q)[:0]
	done := false
	for _, p := range *q {
		if p.k != k {
			out = append(out, p)
			continue
		}
		if !done {
			out = append(out, pair{k, v})
			done = true
		}
	}
	if !done {
		out = append(out, pair{k, v})
	}
	*q = out
}

// encode writes valueless keys without "=".
func (q query) encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.k))
		if p.v != "" {
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.v))
		}
	}
	return b.String()
}

func basename(path string) string {
	return filepath.Base(filepath.FromSlash(path))
}
