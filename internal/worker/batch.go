package worker

import (
	"context"
)

// indexedJob runs fn on one item and remembers its position
type indexedJob[In, Out any] struct {
	index int
	item  In
	fn    func(ctx context.Context, item In) Out
}

func (j *indexedJob[In, Out]) Execute(ctx context.Context) Result {
	return &indexedResult[Out]{index: j.index, value: j.fn(ctx, j.item)}
}

type indexedResult[Out any] struct {
	index int
	value Out
}

// GetError is always nil; failures travel inside Out
func (r *indexedResult[Out]) GetError() error {
	return nil
}

// Map runs fn over items on a pool of the given size and returns the
// outputs in input order. onDone, if set, is called once per finished item
// from a single goroutine. Items not started before ctx is cancelled yield
// the zero value of Out.
func Map[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, item In) Out, onDone func()) []Out {
	out := make([]Out, len(items))
	if len(items) == 0 {
		return out
	}

	pool := NewPool(ctx, workers)
	if onDone != nil {
		pool.OnResult(func(Result) { onDone() })
	}
	pool.Start()

	for i, item := range items {
		if !pool.Submit(&indexedJob[In, Out]{index: i, item: item, fn: fn}) {
			break
		}
	}

	for _, r := range pool.Wait() {
		res := r.(*indexedResult[Out])
		out[res.index] = res.value
	}
	return out
}
