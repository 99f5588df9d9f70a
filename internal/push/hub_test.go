package push

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failWith error
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	cp := append([]byte(nil), data...)
	c.messages = append(c.messages, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestBroadcastScopedToWorkspace(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	a := &fakeConn{}
	b := &fakeConn{}
	h.Register("ws1", "client-a", a)
	h.Register("ws2", "client-b", b)

	h.Broadcast("ws1", IncomingCallEvent{Type: TypeIncomingCall, CallSID: "CA1", FromNumber: "+14045551234"})

	waitFor(t, func() bool { return len(a.received()) == 1 })

	var ev IncomingCallEvent
	if err := json.Unmarshal(a.received()[0], &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.CallSID != "CA1" || ev.Type != TypeIncomingCall {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(b.received()) != 0 {
		t.Fatalf("workspace leak: ws2 client got %d messages", len(b.received()))
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	conn := &fakeConn{}
	c := h.Register("ws1", "client-a", conn)
	h.Unregister(c)

	waitFor(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return conn.closed
	})

	h.Broadcast("ws1", CallStatusEvent{Type: TypeCallStatus, SessionID: "s1"})
	if h.ClientCount("ws1") != 0 {
		t.Fatalf("expected no clients after unregister")
	}
}

func TestFailedWriterIsEvicted(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	conn := &fakeConn{failWith: errors.New("broken pipe")}
	h.Register("ws1", "client-a", conn)

	h.Broadcast("ws1", CallStatusEvent{Type: TypeCallStatus, SessionID: "s1"})

	waitFor(t, func() bool { return h.ClientCount("ws1") == 0 })
}

func TestCloseDetachesAllClients(t *testing.T) {
	h := NewHub(nil)

	a := &fakeConn{}
	b := &fakeConn{}
	h.Register("ws1", "client-a", a)
	h.Register("ws1", "client-b", b)

	h.Close()

	waitFor(t, func() bool {
		a.mu.Lock()
		aClosed := a.closed
		a.mu.Unlock()
		b.mu.Lock()
		bClosed := b.closed
		b.mu.Unlock()
		return aClosed && bClosed
	})

	// No registrations after close.
	c := &fakeConn{}
	h.Register("ws1", "client-c", c)
	if h.ClientCount("ws1") != 0 {
		t.Fatalf("expected closed hub to refuse clients")
	}
}
