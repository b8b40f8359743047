package async

import (
	"context"
	"sync/atomic"
)

// JobHandle is a single-use future. Wait may be called by any number of
// goroutines; all of them observe the same result.
type JobHandle[T any] struct {
	cancel func()
	done   chan struct{}

	result atomic.Pointer[Result[T]]
}

// Job runs job in its own goroutine and returns a handle to its result.
func Job[T any](job func(ctx context.Context) (T, error)) *JobHandle[T] {
	ctx, cancel := context.WithCancel(context.Background())
	handle := &JobHandle[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()

		res, err := job(ctx)

		r := NewResult(res, err)
		handle.result.Store(&r)
		close(handle.done)
	}()

	return handle
}

func (j *JobHandle[T]) Stop() {
	j.cancel()
}

// Wait blocks until the job finishes and returns its result.
func (j *JobHandle[T]) Wait() (T, error) {
	<-j.done
	return j.result.Load().Unpack()
}

// Error returns the job's error if it already finished, nil otherwise.
func (j *JobHandle[T]) Error() error {
	res := j.result.Load()
	if res == nil {
		return nil
	}
	return res.Err
}
