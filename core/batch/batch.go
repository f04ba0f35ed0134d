// Package batch runs the inspector and stripper over several files on behalf
// of a shell.
package batch

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pokkz/metadata-stripper/core"
)

// Inspector is the part of inspect.Inspector used here.
type Inspector interface {
	Inspect(path string) (*core.Metadata, error)
}

// Checker is the has-metadata half of inspect.Inspector.
type Checker interface {
	HasMetadata(path string) (bool, error)
}

// Remover is the part of strip.Stripper used here.
type Remover interface {
	Remove(path string) (string, error)
}

// Result is the inspection outcome for one path. Exactly one of Metadata and
// Err is set.
type Result struct {
	Path     string
	Metadata *core.Metadata
	Err      error
}

// Verdict is the has-metadata outcome for one path.
type Verdict struct {
	Path string
	Has  bool
	Err  error
}

// Inspect inspects every path with at most workers files in flight. A failing
// file does not stop the others; its error is recorded in its Result. Results
// keep the order of paths. The returned error is only set when ctx is done.
func Inspect(ctx context.Context, insp Inspector, paths []string, workers int) ([]Result, error) {
	results := make([]Result, len(paths))
	err := fanOut(ctx, len(paths), workers, func(i int) {
		md, err := insp.Inspect(paths[i])
		results[i] = Result{Path: paths[i], Metadata: md, Err: err}
	})
	return results, err
}

// Check runs HasMetadata over paths the same way Inspect runs Inspect.
func Check(ctx context.Context, c Checker, paths []string, workers int) ([]Verdict, error) {
	verdicts := make([]Verdict, len(paths))
	err := fanOut(ctx, len(paths), workers, func(i int) {
		has, err := c.HasMetadata(paths[i])
		verdicts[i] = Verdict{Path: paths[i], Has: has, Err: err}
	})
	return verdicts, err
}

func fanOut(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	return g.Wait()
}

// Outcome records one finished strip.
type Outcome struct {
	Path   string
	Output string
}

// Failure is the error Strip returns when a file cannot be stripped.
type Failure struct {
	Path string
	Err  error
}

func (f *Failure) Error() string { return f.Path + ": " + f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// Strip strips paths one at a time and aborts on the first failure, which is
// returned as a *Failure together with the outcomes finished so far. A path
// listed twice is only processed once, so two strips never race on one
// staging file.
func Strip(ctx context.Context, r Remover, paths []string) ([]Outcome, error) {
	seen := make(map[string]bool, len(paths))
	var done []Outcome
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true

		out, err := r.Remove(p)
		if err != nil {
			return done, &Failure{Path: p, Err: err}
		}
		done = append(done, Outcome{Path: p, Output: out})
	}
	return done, nil
}
