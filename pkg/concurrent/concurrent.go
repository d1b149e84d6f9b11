package concurrent

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers returns n when positive, otherwise the number of CPUs.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// ParallelMap applies mapFn to every element with at most workers goroutines,
// preserving order. The first error cancels nothing but is returned after all
// elements finished.
func ParallelMap[T any, R any](in []T, workers int, mapFn func(int, T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	var g errgroup.Group
	g.SetLimit(Workers(workers))

	for idx, val := range in {
		g.Go(func() error {
			r, err := mapFn(idx, val)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParallelFor calls action for every index in [0, n) split into contiguous
// chunks, one goroutine per chunk.
func ParallelFor(n, workers int, action func(i int)) {
	if n <= 0 {
		return
	}
	workers = min(Workers(workers), n)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				action(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}
