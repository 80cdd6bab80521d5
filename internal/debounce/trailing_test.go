package debounce

import (
	"sync"
	"testing"
	"time"
)

// collector records flushed key/value pairs for assertions.
type collector struct {
	mu     sync.Mutex
	values []bool
	keys   []string
}

func (c *collector) flush(key string, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	c.values = append(c.values, value)
}

func (c *collector) snapshot() ([]string, []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := append([]string(nil), c.keys...)
	values := append([]bool(nil), c.values...)
	return keys, values
}

func TestTrailing_CoalescesToLatestValue(t *testing.T) {
	c := &collector{}
	d := NewTrailing(c.flush, WithWindow[bool](30*time.Millisecond))
	defer d.Stop()

	d.Set("room-1", true)
	d.Set("room-1", false)
	d.Set("room-1", true)

	time.Sleep(100 * time.Millisecond)

	keys, values := c.snapshot()
	if len(values) != 1 {
		t.Fatalf("flush count = %d, want 1", len(values))
	}
	if keys[0] != "room-1" || values[0] != true {
		t.Errorf("flushed (%q, %v), want (room-1, true)", keys[0], values[0])
	}
}

func TestTrailing_KeysDebounceIndependently(t *testing.T) {
	c := &collector{}
	d := NewTrailing(c.flush, WithWindow[bool](20*time.Millisecond))
	defer d.Stop()

	d.Set("a", true)
	d.Set("b", false)

	time.Sleep(80 * time.Millisecond)

	keys, _ := c.snapshot()
	if len(keys) != 2 {
		t.Fatalf("flush count = %d, want 2", len(keys))
	}
}

func TestTrailing_FlushForcesDelivery(t *testing.T) {
	c := &collector{}
	d := NewTrailing(c.flush, WithWindow[bool](time.Hour))
	defer d.Stop()

	d.Set("a", true)
	d.Flush("a")

	_, values := c.snapshot()
	if len(values) != 1 || values[0] != true {
		t.Fatalf("values = %v, want [true]", values)
	}
}

func TestTrailing_StopDiscardsPending(t *testing.T) {
	c := &collector{}
	d := NewTrailing(c.flush, WithWindow[bool](20*time.Millisecond))

	d.Set("a", true)
	d.Stop()
	d.Set("b", true)

	time.Sleep(60 * time.Millisecond)

	keys, _ := c.snapshot()
	if len(keys) != 0 {
		t.Fatalf("flush count after Stop = %d, want 0", len(keys))
	}
}

func TestTrailing_ZeroWindowFlushesImmediately(t *testing.T) {
	c := &collector{}
	d := NewTrailing(c.flush, WithWindow[bool](0))
	defer d.Stop()

	d.Set("a", true)

	_, values := c.snapshot()
	if len(values) != 1 {
		t.Fatalf("flush count = %d, want 1", len(values))
	}
}
