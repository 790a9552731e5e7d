package task

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor bounds the number of concurrently running blocking calls
// (similarity search, warehouse queries, schema reads) so a burst of requests
// cannot pile unbounded work onto the database connections.
type Executor struct {
	sem *semaphore.Weighted
}

// NewExecutor creates an executor allowing at most limit concurrent calls
func NewExecutor(limit int) *Executor {
	if limit <= 0 {
		limit = 1
	}
	return &Executor{sem: semaphore.NewWeighted(int64(limit))}
}

// Do runs fn once a slot is available. Waiting respects ctx cancellation;
// fn itself receives the same ctx.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)
	return fn(ctx)
}
