package pipeline

import (
	"context"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"esvelte/internal/cssreg"
	"esvelte/internal/source"
)

// FileResult pairs a component path with its load result.
type FileResult struct {
	Path   string
	Result LoadResult
}

// Batch loads components concurrently, at most jobs at a time (GOMAXPROCS
// when jobs < 1). Results keep the order of paths. Styles go to a private
// registry that is dropped afterwards; the only error is cancellation.
func (p *Pipeline) Batch(ctx context.Context, paths []string, jobs int) ([]FileResult, error) {
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, path := range paths {
		emit(p.cfg.Progress, displayOf(p.cfg.Root, path), StagePreprocess, StatusQueued, nil, 0)
	}
	reg := cssreg.New()
	defer reg.Clear()

	out := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = FileResult{Path: path, Result: p.LoadComponent(gctx, path, "", reg)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func displayOf(root, path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return source.DisplayPath(path, root)
}
