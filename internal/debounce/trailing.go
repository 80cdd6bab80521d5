// Package debounce provides a trailing-edge debouncer that coalesces
// rapid value updates into a single flush per key.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindowMs is the default debounce window in milliseconds.
const DefaultWindowMs = 300

// pending holds the latest value for a key and its flush timer.
type pending[T any] struct {
	value T
	timer *time.Timer
}

// Trailing coalesces rapid Set calls within a window into one flush
// carrying the latest value. Each key debounces independently.
type Trailing[T any] struct {
	mu      sync.Mutex
	buffers map[string]*pending[T]
	stopped bool

	window  time.Duration
	onFlush func(key string, value T)
}

// TrailingOption configures a Trailing debouncer.
type TrailingOption[T any] func(*Trailing[T])

// WithWindow sets the debounce window. Non-positive values flush
// immediately on Set.
func WithWindow[T any](window time.Duration) TrailingOption[T] {
	return func(d *Trailing[T]) {
		d.window = window
	}
}

// NewTrailing creates a debouncer that invokes onFlush with the most
// recent value set for a key once the window elapses without another
// Set for that key.
func NewTrailing[T any](onFlush func(key string, value T), opts ...TrailingOption[T]) *Trailing[T] {
	d := &Trailing[T]{
		buffers: make(map[string]*pending[T]),
		window:  DefaultWindowMs * time.Millisecond,
		onFlush: onFlush,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Set records a value for the key and (re)starts its flush timer.
// Only the last value set within the window is flushed.
func (d *Trailing[T]) Set(key string, value T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.window <= 0 {
		d.mu.Unlock()
		if d.onFlush != nil {
			d.onFlush(key, value)
		}
		return
	}

	if buf, ok := d.buffers[key]; ok {
		buf.value = value
		buf.timer.Reset(d.window)
		d.mu.Unlock()
		return
	}

	buf := &pending[T]{value: value}
	buf.timer = time.AfterFunc(d.window, func() {
		d.flush(key)
	})
	d.buffers[key] = buf
	d.mu.Unlock()
}

// flush delivers the buffered value for key and clears its buffer.
func (d *Trailing[T]) flush(key string) {
	d.mu.Lock()
	buf, ok := d.buffers[key]
	if !ok || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.buffers, key)
	value := buf.value
	onFlush := d.onFlush
	d.mu.Unlock()

	if onFlush != nil {
		onFlush(key, value)
	}
}

// Flush forces immediate delivery of any buffered value for key.
func (d *Trailing[T]) Flush(key string) {
	d.mu.Lock()
	if buf, ok := d.buffers[key]; ok {
		buf.timer.Stop()
	}
	d.mu.Unlock()
	d.flush(key)
}

// Stop cancels all pending timers and discards buffered values.
// After Stop, Set is a no-op.
func (d *Trailing[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for key, buf := range d.buffers {
		buf.timer.Stop()
		delete(d.buffers, key)
	}
}
