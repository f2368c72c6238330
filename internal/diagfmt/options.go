package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto prints paths as the pipeline reported them, relative to the project root.
	PathModeAuto PathMode = iota
	// PathModeAbsolute joins relative paths onto the root.
	PathModeAbsolute
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color    bool
	PathMode PathMode
	// Root is the directory relative paths are joined onto.
	Root string
	// Width ограничивает строку контекста, 0 - не ограничено
	Width int
	// HideExcerpt drops the source line and caret.
	HideExcerpt bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode PathMode
	Root     string
	Max      int // обрезка вывода, не Bag
}
