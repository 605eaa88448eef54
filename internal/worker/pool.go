package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MaxConcurrency caps the number of in-flight tasks of one pool run
const MaxConcurrency = 8

// Pool runs a batch of tasks with bounded parallelism
type Pool struct {
	concurrency int
	logger      *slog.Logger
}

// NewPool creates a pool running at most concurrency tasks at once (clamped to 1..MaxConcurrency)
func NewPool(concurrency int, logger *slog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}
	return &Pool{concurrency: concurrency, logger: logger}
}

// Concurrency returns the effective parallelism
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Run calls task for every index in [0, n) and returns once all of them have
// finished. Every index is run exactly once; a panicking task is logged and does
// not stop the batch. Run does not stop early when ctx is cancelled, tasks
// observe ctx themselves.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}

	// Semaphore to limit concurrent processing
	semaphore := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		semaphore <- struct{}{}
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("pool task panicked",
						slog.Int("task", i),
						slog.String("error", fmt.Sprint(r)),
					)
				}
			}()

			task(ctx, i)
		}(i)
	}

	wg.Wait()
}
