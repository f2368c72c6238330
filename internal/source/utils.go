package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
)

// buildLineIndex returns the byte offsets at which every line starts.
// Line breaks are \r\n, \r and \n, the same set the component compiler
// uses when it reports positions.
func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 1, 16)
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			continue
		}
		next, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			panic(fmt.Errorf("line offset overflow: %w", err))
		}
		out = append(out, next)
	}
	return out
}

func toLineCol(lines []uint32, off uint32) LineCol {
	// бинпоиск: наибольший lines[i] <= off
	lo, hi := 0, len(lines)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lines[mid] <= off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if hi < 0 {
		return LineCol{Line: 1, Col: off}
	}
	line, err := safecast.Conv[uint32](hi + 1)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return LineCol{Line: line, Col: off - lines[hi]}
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}

// DisplayPath returns path relative to root with forward slashes. Paths
// outside root, or when root is empty, are returned normalised as is.
func DisplayPath(path, root string) string {
	if root == "" {
		return normalizePath(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return normalizePath(path)
	}
	return normalizePath(rel)
}

// SplitLines splits text on \r\n, \r and \n.
func SplitLines(text string) []string {
	out := make([]string, 0, strings.Count(text, "\n")+1)
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			out = append(out, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		case '\n':
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	return append(out, text[start:])
}
