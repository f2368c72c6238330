package source

// File is one authored file read for a single load request.
type File struct {
	Path    string // absolute path on disk
	Display string // root-relative, forward slashes
	Content []byte
	lines   []uint32 // offsets of line starts
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 0-based, в байтах
}
