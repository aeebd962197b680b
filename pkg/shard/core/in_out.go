package core

// Drain takes every value still buffered in ch without blocking.
func Drain[T any](ch <-chan T) []T {
	res := make([]T, 0)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return res
			}
			res = append(res, v)
		default:
			return res
		}
	}
}

// Signal performs a non-blocking send of an empty struct. It reports whether
// the signal was delivered.
func Signal(ch chan<- struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Closed reports whether ch is closed, without blocking.
func Closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
