package queue

// signal lets any number of goroutines wait for the next post. Waiters grab
// the current channel while holding the queue lock; a post closes it and
// installs a fresh one, waking every waiter at once.
//
// Not safe on its own, callers hold the owning queue's mutex.
type signal struct {
	ch chan struct{}
}

func newSignal() signal {
	return signal{ch: make(chan struct{})}
}

func (s *signal) wait() <-chan struct{} {
	return s.ch
}

func (s *signal) broadcast() {
	close(s.ch)
	s.ch = make(chan struct{})
}
