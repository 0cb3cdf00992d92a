package executor

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Run calls fn for every task with at most limit calls in flight and returns
// the results in task order.
//
// Tasks are expected to absorb their own faults. The first error returned by
// fn (or a panic inside it) cancels the batch: tasks that have not started yet
// are skipped and Run returns that error with no results.
func Run[T, R any](ctx context.Context, limit int, tasks []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, task := range tasks {
		// Go blocks while limit tasks are running, so this check happens
		// right before a slot would be taken.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			defer func() {
				if r := recover(); r != nil {
					err = errors.WithStack(fmt.Errorf("task %d panicked: %v", i, r))
				}
			}()
			res, err := fn(gctx, task)
			if err != nil {
				return errors.Wrapf(err, "task %d", i)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The parent may have been canceled before any task failed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
