package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// Load reads a file from disk as is. Content is not normalised: sourcemaps
// embed it verbatim and must match the bytes the user authored.
func Load(path, root string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	// #nosec G304 -- path is provided by the host bundler
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return New(abs, root, content), nil
}

// New builds a File from memory.
func New(path, root string, content []byte) *File {
	return &File{
		Path:    path,
		Display: DisplayPath(path, root),
		Content: content,
		lines:   buildLineIndex(content),
	}
}

// Text returns the content as a string.
func (f *File) Text() string {
	return string(f.Content)
}

// Base returns the file's basename.
func (f *File) Base() string {
	return filepath.Base(f.Path)
}

// Dir returns the directory holding the file.
func (f *File) Dir() string {
	return filepath.Dir(f.Path)
}

// LineCount returns the number of lines, a trailing line break opens an empty last line.
func (f *File) LineCount() int {
	return len(f.lines)
}

// Line returns the text of the given 1-based line without its line break.
// Out of range lines yield "".
func (f *File) Line(n uint32) string {
	if n == 0 || int(n) > len(f.lines) {
		return ""
	}
	start := f.lines[n-1]
	end := len(f.Content)
	if int(n) < len(f.lines) {
		end = int(f.lines[n])
	}
	text := f.Content[start:end]
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	return string(text)
}

// Resolve converts a byte offset into a line/column position.
func (f *File) Resolve(offset int) LineCol {
	off, err := safecast.Conv[uint32](offset)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return toLineCol(f.lines, off)
}

// ResolveRef resolves a reference written inside the component at
// componentPath, such as a script src attribute, to an absolute path.
func ResolveRef(componentPath, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(componentPath), filepath.FromSlash(ref))
}

// ReadOptional reads a file and reports false when it cannot be read.
func ReadOptional(path string) (string, bool) {
	// #nosec G304 -- path comes from a sourcemap the pipeline produced
	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger().Sugar().Debugf("read %s: %v", path, err)
		}
		return "", false
	}
	return string(content), true
}
