// Package cssreg hands extracted component styles from the component load
// to the later load of the style module the component imports.
package cssreg

import (
	"errors"
	"fmt"
	"sync"

	"esvelte/internal/sourcemap"
)

// ErrNotFound is returned by Take when no style is waiting under a key.
var ErrNotFound = errors.New("CSS not found")

// ErrDuplicate is returned by Put when a key is already taken in this pass.
var ErrDuplicate = errors.New("style already registered")

// Entry is one component's stylesheet awaiting its import.
type Entry struct {
	Code string
	Map  *sourcemap.Map
	// Source is the authored component text embedded into the map.
	Source string
	// Path is the component's absolute path.
	Path string
	// DisableMap writes an empty sourcemap comment when Map is nil.
	DisableMap bool
}

// Contents renders the stylesheet with its sourcemap comment. The map's
// sources are suffixed so they never collide with the script's.
func (e Entry) Contents() string {
	m := sourcemap.Repair(e.Map, sourcemap.RepairInput{
		Basename: basename(e.Path),
		Original: e.Source,
		Suffix:   "?style.css",
	})
	return sourcemap.CSSComment(e.Code, m, e.DisableMap)
}

// Registry is scoped to one build pass. Every entry is consumed at most once.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Put stores e under key.
func (r *Registry) Put(key string, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	r.entries[key] = e
	return nil
}

// Take removes and returns the entry under key.
func (r *Registry) Take(key string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	delete(r.entries, key)
	return e, nil
}

// Clear drops every pending entry; called when a pass ends.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
