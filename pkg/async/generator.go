package async

// Yielder emits one value from a Generator body.
type Yielder[T any] func(T)

// Generator runs gen in its own goroutine and exposes its yields as a
// channel. A non-nil error from gen is sent as the final item before the
// channel closes.
func Generator[T any](gen func(Yielder[T]) error) <-chan Result[T] {
	ch := make(chan Result[T], 1)

	y := func(t T) {
		ch <- NewResult(t)
	}

	go func() {
		defer close(ch)

		if err := gen(y); err != nil {
			var zero T
			ch <- NewResult(zero, err)
		}
	}()

	return ch
}
