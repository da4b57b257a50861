package invoker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MaxConcurrency caps the pool size accepted by NewRunner.
const MaxConcurrency = 20

// Handler receives the raw result of request i. A non-nil error aborts the
// run.
type Handler func(i int, raw string) error

// Runner issues a batch of requests and hands each result to a Handler.
// Handlers are never called concurrently.
type Runner interface {
	Run(ctx context.Context, reqs []Request, handle Handler) error
}

// NewRunner returns a Sequential runner for concurrency <= 1 and a Pool
// otherwise.
func NewRunner(t Translator, concurrency int) Runner {
	if concurrency <= 1 {
		return &Sequential{Translator: t}
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}
	return &Pool{Translator: t, Size: concurrency}
}

// Sequential issues requests one at a time in order and stops at the first
// failure.
type Sequential struct {
	Translator Translator
}

func (s *Sequential) Run(ctx context.Context, reqs []Request, handle Handler) error {
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := s.Translator.Translate(ctx, req)
		if err != nil {
			return err
		}
		if err := handle(i, raw); err != nil {
			return err
		}
	}
	return nil
}

// Pool issues up to Size requests at once. The first failure cancels the
// requests still in flight and is returned. Results are handed over in
// completion order.
type Pool struct {
	Translator Translator
	Size       int
}

func (p *Pool) Run(ctx context.Context, reqs []Request, handle Handler) error {
	if p.Size <= 0 {
		return fmt.Errorf("pool size must be greater than 0, got %d", p.Size)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Size)
	var mu sync.Mutex

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := p.Translator.Translate(gctx, req)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return handle(i, raw)
		})
	}
	return g.Wait()
}
