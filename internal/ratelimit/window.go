// Package ratelimit implements fixed-window admission control for outbound
// requests. A limiter tracks any number of named windows; callers acquire one
// unit of quota against every window an endpoint is bound to before sending
// a request.
package ratelimit

import (
	"strings"
	"time"
)

// Window describes one fixed-window quota: at most Amount admissions in any
// Period-long wall-clock bucket identified by (Namespace, keys...).
type Window struct {
	Amount    int
	Period    time.Duration
	Namespace string
}

// PerSecond builds a window of amount admissions per period seconds.
func PerSecond(amount, periodSeconds int, namespace string) Window {
	return Window{
		Amount:    amount,
		Period:    time.Duration(periodSeconds) * time.Second,
		Namespace: namespace,
	}
}

// key builds the storage key for this window and key tuple. The window size
// is part of the key so the same (namespace, keys) tuple can carry both a
// short and a long window without the counters colliding.
func (w Window) key(keys []string) string {
	var b strings.Builder
	b.WriteString(w.Namespace)
	for _, k := range keys {
		b.WriteByte('/')
		b.WriteString(k)
	}
	b.WriteByte('/')
	b.WriteString(w.Period.String())
	return b.String()
}

// Binding pairs a window with the key tuple it is checked under. Endpoint
// bindings typically use (route, window name) for the route windows and
// (route, method) for the endpoint window.
type Binding struct {
	Window Window
	Keys   []string
}
