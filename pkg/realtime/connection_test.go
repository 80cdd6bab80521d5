package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xhist/travel-buddy-client-sub000/internal/auth"
	"github.com/xhist/travel-buddy-client-sub000/internal/backoff"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// fastPolicy keeps reconnect delays short enough for tests.
func fastPolicy() backoff.Policy {
	return backoff.Policy{InitialMs: 5, MaxMs: 5, Factor: 1.0}
}

func testCredential(t *testing.T) *auth.Credential {
	t.Helper()
	cred, err := auth.NewCredential("test-token")
	if err != nil {
		t.Fatalf("NewCredential failed: %v", err)
	}
	return cred
}

func TestConnectTransitionsToConnected(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
		WithReconnectPolicy(fastPolicy()),
	)

	var mu sync.Mutex
	var transitions []models.ConnectionStatus
	cm.OnStatusChange(func(status models.ConnectionStatus) {
		mu.Lock()
		transitions = append(transitions, status)
		mu.Unlock()
	})

	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cm.Disconnect()

	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "status connected")

	mu.Lock()
	got := append([]models.ConnectionStatus(nil), transitions...)
	mu.Unlock()
	want := []models.ConnectionStatus{models.StatusConnecting, models.StatusConnected}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
}

func TestConnectSendsHandshakeWithCredential(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
	)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cm.Disconnect()

	conn := transport.conn(t, 0)
	waitUntil(t, func() bool { return len(conn.framesOfType(models.FrameConnect)) == 1 }, "handshake frame written")

	if conn.header.Get("Authorization") != "Bearer test-token" {
		t.Fatalf("handshake Authorization = %q, want bearer token", conn.header.Get("Authorization"))
	}
	hs := conn.framesOfType(models.FrameConnect)[0]
	if hs.Headers["authorization"] != "Bearer test-token" {
		t.Fatalf("connect frame authorization = %q, want bearer token", hs.Headers["authorization"])
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
	)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("first Connect failed: %v", err)
	}
	defer cm.Disconnect()
	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "status connected")

	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := transport.dialCount(); n != 1 {
		t.Fatalf("dialCount = %d, want 1 after duplicate Connect", n)
	}
}

func TestPublishWhileDisconnectedFails(t *testing.T) {
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(newFakeTransport()),
	)

	frame, err := models.NewFrame(models.FrameMessage, "room.r1.messages", map[string]string{"x": "y"})
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	err = cm.Publish(frame)
	if !IsNotConnected(err) {
		t.Fatalf("Publish while disconnected = %v, want NOT_CONNECTED", err)
	}
}

func TestPublishAttachesCredential(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
	)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cm.Disconnect()
	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "status connected")

	if err := cm.PublishTo(models.FrameMessage, "room.r1.messages", nil); err != nil {
		t.Fatalf("PublishTo failed: %v", err)
	}
	conn := transport.conn(t, 0)
	msgs := conn.framesOfType(models.FrameMessage)
	if len(msgs) != 1 {
		t.Fatalf("got %d message frames, want 1", len(msgs))
	}
	if msgs[0].Headers["authorization"] != "Bearer test-token" {
		t.Fatalf("published frame authorization = %q", msgs[0].Headers["authorization"])
	}
}

func TestReconnectAfterTransportLoss(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
		WithReconnectPolicy(fastPolicy()),
	)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cm.Disconnect()
	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "first connect")

	transport.conn(t, 0).fail(errors.New("link reset"))

	waitUntil(t, func() bool { return transport.dialCount() == 2 }, "second dial after loss")
	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "reconnected")
}

func TestDisconnectStopsReconnection(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
		WithReconnectPolicy(fastPolicy()),
	)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "connected")

	cm.Disconnect()
	if cm.Status() != models.StatusDisconnected {
		t.Fatalf("status after Disconnect = %v, want disconnected", cm.Status())
	}

	dials := transport.dialCount()
	time.Sleep(50 * time.Millisecond)
	if transport.dialCount() != dials {
		t.Fatal("manager kept dialing after explicit Disconnect")
	}
}

func TestMaxReconnectAttemptsGivesUp(t *testing.T) {
	transport := newFakeTransport()
	transport.dialErr = errors.New("broker unreachable")
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
		WithReconnectPolicy(fastPolicy()),
		WithMaxReconnectAttempts(2),
	)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cm.Disconnect()

	waitUntil(t, func() bool { return cm.Status() == models.StatusDisconnected }, "gave up")
}

func TestMalformedFrameDoesNotBreakStream(t *testing.T) {
	transport := newFakeTransport()
	cm := NewConnectionManager("ws://broker.test", testCredential(t),
		WithTransport(transport),
		WithReconnectPolicy(fastPolicy()),
	)

	var mu sync.Mutex
	var received []*models.Frame
	cm.OnFrame(func(frame *models.Frame) {
		mu.Lock()
		received = append(received, frame)
		mu.Unlock()
	})

	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cm.Disconnect()
	waitUntil(t, func() bool { return cm.Status() == models.StatusConnected }, "connected")

	conn := transport.conn(t, 0)
	conn.fail(ErrMalformedFrame(errors.New("bad json")))
	conn.deliver(&models.Frame{Type: models.FrameMessage, Topic: "room.r1.messages"})

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, "good frame delivered after malformed drop")

	if transport.dialCount() != 1 {
		t.Fatalf("dialCount = %d, want 1: malformed frame must not drop the link", transport.dialCount())
	}
}
