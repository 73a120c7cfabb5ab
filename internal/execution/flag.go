// Package execution contains the concurrent job machinery: the job
// abstraction, the bounded queue, the refiller that tops it up from a
// factory, and the worker that drives the retry state machine.
package execution

import "sync"

// Flag is a monotonic broadcast signal: once set it stays set. Workers poll
// it cooperatively between jobs and before each retry; nothing is ever
// interrupted mid-request.
type Flag struct {
	once sync.Once
	ch   chan struct{}
}

// NewFlag returns an unset flag.
func NewFlag() *Flag {
	return &Flag{ch: make(chan struct{})}
}

// Set raises the flag. Safe to call from any goroutine, any number of times.
func (f *Flag) Set() {
	f.once.Do(func() { close(f.ch) })
}

// IsSet reports whether the flag has been raised.
func (f *Flag) IsSet() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Done exposes the flag as a channel for select loops.
func (f *Flag) Done() <-chan struct{} {
	return f.ch
}
