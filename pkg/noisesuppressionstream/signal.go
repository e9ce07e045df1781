package noisesuppressionstream

// signal wakes up everybody waiting for an event. It must be accessed only
// under the lock guarding the state the event is about.
type signal struct {
	ch chan struct{}
}

func newSignal() signal {
	return signal{ch: make(chan struct{})}
}

func (s *signal) C() <-chan struct{} {
	return s.ch
}

func (s *signal) Notify() {
	close(s.ch)
	s.ch = make(chan struct{})
}
