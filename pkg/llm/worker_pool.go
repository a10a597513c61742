package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig bounds concurrent provider calls.
type WorkerPoolConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" env:"LLM_MAX_CONCURRENT" env-default:"4"`
}

// DefaultWorkerPoolConfig allows four calls in flight.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{MaxConcurrent: 4}
}

// WorkerPool runs provider calls with bounded parallelism. It is used for
// bulk work such as embedding schema documents, never on the resolution path.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultWorkerPoolConfig().MaxConcurrent
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("llm-worker-pool"),
	}
}

// WorkItem is one unit of work.
type WorkItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// WorkResult is the outcome of the WorkItem at the same index.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process runs every item and returns results in submission order.
// A failing item does not stop the others; items not started before ctx is
// canceled report ctx.Err().
func Process[T any](ctx context.Context, pool *WorkerPool, items []WorkItem[T]) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item WorkItem[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = WorkResult[T]{ID: item.ID, Err: ctx.Err()}
				return
			}

			r, err := item.Execute(ctx)
			if err != nil {
				pool.logger.Debug("Work item failed", zap.String("id", item.ID), zap.Error(err))
			}
			results[i] = WorkResult[T]{ID: item.ID, Result: r, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}
