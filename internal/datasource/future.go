package datasource

import (
	"context"
	"sync"
)

// Future is a value that becomes available later. It settles exactly once;
// later Resolve or Reject calls are ignored.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewFuture creates an unsettled future
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future already holding v
func Resolved(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Rejected returns a future already holding err
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Go runs fn on a new goroutine and settles the future with its outcome
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := NewFuture()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve settles the future with a value
func (f *Future) Resolve(v any) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Reject settles the future with an error
func (f *Future) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Payload is one element of a streaming source
type Payload struct {
	Value any
	Err   error
}
