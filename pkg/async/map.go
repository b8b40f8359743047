package async

import "context"

// Settle starts one job per item and waits for all of them, allSettled
// style: one failing job never aborts its siblings. The returned slice holds
// one result per input, in order.
func Settle[T any, R any](ctx context.Context, collection []T, fn func(context.Context, T) (R, error)) []Result[R] {
	handles := make([]*JobHandle[R], len(collection))
	for i, item := range collection {
		handles[i] = Job(func(jobCtx context.Context) (R, error) {
			select {
			case <-ctx.Done():
				var zero R
				return zero, ctx.Err()
			default:
			}
			return fn(jobCtx, item)
		})
	}

	results := make([]Result[R], len(collection))
	for i, handle := range handles {
		results[i] = NewResult(handle.Wait())
	}
	return results
}
