// Package parallel runs a function over an iterator with a bounded number of
// concurrent goroutines.
package parallel

import (
	"context"
	"iter"
	"sync"
)

// Func is applied to every element of the input sequence.
type Func[T, R any] func(ctx context.Context, in T) (R, error)

// Map applies f to the input with at most limit concurrent calls. Results are
// delivered in completion order, not input order.
type Map[T, R any] struct {
	ctx   context.Context
	limit int
	f     Func[T, R]
}

func NewMap[T, R any](ctx context.Context, limit int, f Func[T, R]) Map[T, R] {
	if limit < 1 {
		limit = 1
	}
	return Map[T, R]{
		ctx:   ctx,
		limit: limit,
		f:     f,
	}
}

type result[R any] struct {
	value R
	err   error
}

// Iter consumes seq and returns an iterator over results. Input errors are
// passed through unchanged. Once the context is canceled no further results
// are yielded and Iter returns after all started calls have finished.
func (m Map[T, R]) Iter(seq iter.Seq2[T, error]) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		ctx, cancel := context.WithCancel(m.ctx)
		defer cancel()

		results := make(chan result[R])
		sem := make(chan struct{}, m.limit)

		go func() {
			var wg sync.WaitGroup
			defer func() {
				wg.Wait()
				close(results)
			}()
			for in, err := range seq {
				if err != nil {
					var zero R
					select {
					case results <- result[R]{value: zero, err: err}:
					case <-ctx.Done():
						return
					}
					continue
				}

				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				if ctx.Err() != nil {
					<-sem
					return
				}

				wg.Add(1)
				go func(in T) {
					defer wg.Done()
					defer func() { <-sem }()
					value, err := m.f(ctx, in)
					select {
					case results <- result[R]{value: value, err: err}:
					case <-ctx.Done():
					}
				}(in)
			}
		}()

		stopped := false
		for res := range results {
			if stopped || ctx.Err() != nil {
				continue
			}
			if !yield(res.value, res.err) {
				stopped = true
				cancel()
			}
		}
	}
}
