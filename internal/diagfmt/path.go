package diagfmt

import "path/filepath"

func formatPath(file string, mode PathMode, root string) string {
	if file == "" {
		return ""
	}
	switch mode {
	case PathModeAbsolute:
		if !filepath.IsAbs(file) && root != "" {
			return filepath.ToSlash(filepath.Join(root, file))
		}
		return filepath.ToSlash(file)
	case PathModeBasename:
		return filepath.Base(file)
	default:
		return file
	}
}
