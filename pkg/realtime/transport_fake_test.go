package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// readResult is one scripted outcome for fakeConn.ReadFrame.
type readResult struct {
	frame *models.Frame
	err   error
}

// fakeConn is an in-memory Conn scripted by tests.
type fakeConn struct {
	reads  chan readResult
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []*models.Frame
	header http.Header
}

func newFakeConn(header http.Header) *fakeConn {
	return &fakeConn{
		reads:  make(chan readResult, 64),
		closed: make(chan struct{}),
		header: header,
	}
}

func (c *fakeConn) ReadFrame() (*models.Frame, error) {
	select {
	case r := <-c.reads:
		return r.frame, r.err
	case <-c.closed:
		return nil, errors.New("fake connection closed")
	}
}

func (c *fakeConn) WriteFrame(frame *models.Frame) error {
	select {
	case <-c.closed:
		return errors.New("fake connection closed")
	default:
	}
	clone := *frame
	c.mu.Lock()
	c.writes = append(c.writes, &clone)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
	})
	return nil
}

// deliver queues an inbound frame.
func (c *fakeConn) deliver(frame *models.Frame) {
	c.reads <- readResult{frame: frame}
}

// fail queues a read error, simulating transport loss.
func (c *fakeConn) fail(err error) {
	c.reads <- readResult{err: err}
}

// writtenFrames returns a snapshot of everything written so far.
func (c *fakeConn) writtenFrames() []*models.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Frame, len(c.writes))
	copy(out, c.writes)
	return out
}

// framesOfType filters written frames by type.
func (c *fakeConn) framesOfType(ft models.FrameType) []*models.Frame {
	var out []*models.Frame
	for _, f := range c.writtenFrames() {
		if f.Type == ft {
			out = append(out, f)
		}
	}
	return out
}

// fakeTransport hands out fakeConns and records every dial.
type fakeTransport struct {
	mu      sync.Mutex
	conns   []*fakeConn
	dialErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (t *fakeTransport) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	c := newFakeConn(header)
	t.conns = append(t.conns, c)
	return c, nil
}

// conn returns the i-th dialed connection, waiting for it to appear.
func (t *fakeTransport) conn(tb testing.TB, i int) *fakeConn {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		t.mu.Lock()
		if len(t.conns) > i {
			c := t.conns[i]
			t.mu.Unlock()
			return c
		}
		t.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	tb.Fatalf("connection %d was never dialed", i)
	return nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(tb testing.TB, cond func() bool, msg string) {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	tb.Fatalf("condition never held: %s", msg)
}
