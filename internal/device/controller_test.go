package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"propdesk/internal/session"
)

// fakeTransport is an in-memory Transport for controller tests.
type fakeTransport struct {
	mu            sync.Mutex
	registerCalls int32
	registerErr   error
	registerDelay time.Duration
	connectErr    error
	conns         []*fakeConn
	rejected      []string
}

func (f *fakeTransport) Register(ctx context.Context, identity string) error {
	atomic.AddInt32(&f.registerCalls, 1)
	if f.registerDelay > 0 {
		select {
		case <-time.After(f.registerDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.registerErr
}

func (f *fakeTransport) Connect(ctx context.Context, p ConnectParams) (Conn, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	c := newFakeConn("CA" + p.To)
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeTransport) Reject(ctx context.Context, providerCallID string) error {
	f.mu.Lock()
	f.rejected = append(f.rejected, providerCallID)
	f.mu.Unlock()
	return nil
}

type fakeConn struct {
	id     string
	events chan Event

	mu           sync.Mutex
	digits       []string
	disconnected bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, events: make(chan Event, 16)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) SendDigits(d string) error {
	c.mu.Lock()
	c.digits = append(c.digits, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.disconnected {
		c.disconnected = true
		close(c.events)
	}
	return nil
}

func (c *fakeConn) Events() <-chan Event { return c.events }

func (c *fakeConn) emit(kind EventKind, reason string) {
	c.events <- Event{Kind: kind, Reason: reason, OccurredAt: time.Now()}
}

func newTestController(t *fakeTransport) *Controller {
	c := NewController(t, Options{Identity: "agent-1", WorkspaceID: "ws-1", From: "+14045550000"})
	c.Start()
	return c
}

func waitForStatus(t *testing.T, c *Controller, want session.Status) *session.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.Machine().Current(); s != nil && s.Status == want {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	s := c.Machine().Current()
	if s == nil {
		t.Fatalf("expected status %s, have no session", want)
	}
	t.Fatalf("expected status %s, got %s", want, s.Status)
	return nil
}

func TestPlaceCallLifecycle(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)

	s, err := c.PlaceCall(context.Background(), "4045551234", "", "lead", "lead-7")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if s.Status != session.StatusConnecting {
		t.Fatalf("expected connecting, got %s", s.Status)
	}
	if s.CounterpartNumber != "4045551234" {
		t.Fatalf("unexpected number %q", s.CounterpartNumber)
	}
	if s.RouteEntityType != "lead" || s.RouteEntityID != "lead-7" {
		t.Fatalf("route context not recorded: %+v", s)
	}

	conn := ft.conns[0]
	conn.emit(EventRinging, "")
	waitForStatus(t, c, session.StatusRinging)
	conn.emit(EventAccepted, "")
	waitForStatus(t, c, session.StatusInProgress)

	c.EndCall()
	s = waitForStatus(t, c, session.StatusEnded)
	if s.EndedAt == nil {
		t.Fatalf("expected ended_at set")
	}
}

func TestPlaceCallRejectsInvalidNumber(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)

	for _, bad := range []string{"", "12345", "not-a-number", "+"} {
		if _, err := c.PlaceCall(context.Background(), bad, "", "", ""); !errors.Is(err, ErrInvalidNumber) {
			t.Fatalf("%q: expected ErrInvalidNumber, got %v", bad, err)
		}
	}
	if len(ft.conns) != 0 {
		t.Fatalf("no connection should be opened for invalid numbers")
	}
}

func TestNormalizeNumberAcceptsFormatting(t *testing.T) {
	got, err := NormalizeNumber("+1 (404) 555-1234")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "+14045551234" {
		t.Fatalf("expected +14045551234, got %q", got)
	}
}

func TestConcurrentPlaceCallsYieldOneLiveSession(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)

	const n = 8
	var wg sync.WaitGroup
	var okCount, busyCount int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.PlaceCall(context.Background(), "4045551234", "", "", "")
			switch {
			case err == nil:
				atomic.AddInt32(&okCount, 1)
			case errors.Is(err, session.ErrCallInProgress):
				atomic.AddInt32(&busyCount, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if okCount != 1 {
		t.Fatalf("expected exactly 1 successful place, got %d", okCount)
	}
	if busyCount != n-1 {
		t.Fatalf("expected %d busy rejections, got %d", n-1, busyCount)
	}
	if len(ft.conns) != 1 {
		t.Fatalf("expected 1 transport connection, got %d", len(ft.conns))
	}
}

func TestEndCallWithoutActiveCallIsNoop(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)
	c.EndCall() // must not panic or error
	if s := c.Machine().Current(); s != nil {
		t.Fatalf("no session expected, got %+v", s)
	}
}

func TestSendDigitsIgnoredBeforeConnect(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)

	c.SendDigits("1") // no session at all

	if _, err := c.PlaceCall(context.Background(), "4045551234", "", "", ""); err != nil {
		t.Fatalf("place: %v", err)
	}
	conn := ft.conns[0]
	conn.emit(EventRinging, "")
	waitForStatus(t, c, session.StatusRinging)

	c.SendDigits("2") // still ringing: dropped
	conn.mu.Lock()
	early := len(conn.digits)
	conn.mu.Unlock()
	if early != 0 {
		t.Fatalf("digits must be dropped before connect, got %v", conn.digits)
	}

	conn.emit(EventAccepted, "")
	waitForStatus(t, c, session.StatusInProgress)
	c.SendDigits("3")

	conn.mu.Lock()
	got := append([]string(nil), conn.digits...)
	conn.mu.Unlock()
	if len(got) != 1 || got[0] != "3" {
		t.Fatalf("expected only in-progress digits, got %v", got)
	}
}

func TestTransportConnectFailureSurfacesAsFailed(t *testing.T) {
	ft := &fakeTransport{connectErr: errors.New("carrier unavailable")}
	c := newTestController(ft)

	s, err := c.PlaceCall(context.Background(), "4045551234", "", "", "")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if s == nil || s.Status != session.StatusFailed {
		t.Fatalf("expected failed session, got %+v", s)
	}
	if s.FailReason == "" {
		t.Fatalf("expected human-readable fail reason")
	}

	// Device stays usable after the failure.
	ft.connectErr = nil
	if _, err := c.PlaceCall(context.Background(), "4045551234", "", "", ""); err != nil {
		t.Fatalf("place after failure: %v", err)
	}
}

func TestTransportErrorEventFailsSession(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)

	if _, err := c.PlaceCall(context.Background(), "4045551234", "", "", ""); err != nil {
		t.Fatalf("place: %v", err)
	}
	ft.conns[0].emit(EventError, "call no-answer")
	s := waitForStatus(t, c, session.StatusFailed)
	if s.FailReason != "call no-answer" {
		t.Fatalf("expected reason carried through, got %q", s.FailReason)
	}
}

func TestInitializeCoalescesConcurrentCalls(t *testing.T) {
	ft := &fakeTransport{registerDelay: 30 * time.Millisecond}
	c := newTestController(ft)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Initialize(context.Background()); err != nil {
				t.Errorf("initialize: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&ft.registerCalls); n != 1 {
		t.Fatalf("expected 1 coalesced registration, got %d", n)
	}

	// Idempotent afterwards.
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize again: %v", err)
	}
	if n := atomic.LoadInt32(&ft.registerCalls); n != 1 {
		t.Fatalf("expected no re-registration, got %d", n)
	}
}

func TestInitializeRetriesAfterFailure(t *testing.T) {
	ft := &fakeTransport{registerErr: errors.New("dns")}
	c := newTestController(ft)

	if err := c.Initialize(context.Background()); err == nil {
		t.Fatalf("expected registration error")
	}
	ft.registerErr = nil
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestCallCapBlocksPlacement(t *testing.T) {
	ft := &fakeTransport{}
	var held int32
	c := NewController(ft, Options{
		Identity:    "agent-1",
		WorkspaceID: "ws-1",
		From:        "+14045550000",
		AcquireCap: func(ctx context.Context) (bool, error) {
			return atomic.CompareAndSwapInt32(&held, 0, 1), nil
		},
		ReleaseCap: func(ctx context.Context) error {
			atomic.StoreInt32(&held, 0)
			return nil
		},
	})
	c.Start()

	if _, err := c.PlaceCall(context.Background(), "4045551234", "", "", ""); err != nil {
		t.Fatalf("place: %v", err)
	}
	conn := ft.conns[0]
	conn.emit(EventAccepted, "")
	waitForStatus(t, c, session.StatusInProgress)

	c.EndCall()
	waitForStatus(t, c, session.StatusEnded)

	// Cap released after terminal; a new call may start.
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&held) != 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := c.PlaceCall(context.Background(), "4045555678", "", "", ""); err != nil {
		t.Fatalf("place after release: %v", err)
	}
}

func TestStopDisconnectsActiveCall(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestController(ft)

	if _, err := c.PlaceCall(context.Background(), "4045551234", "", "", ""); err != nil {
		t.Fatalf("place: %v", err)
	}
	c.Stop()

	conn := ft.conns[0]
	conn.mu.Lock()
	disc := conn.disconnected
	conn.mu.Unlock()
	if !disc {
		t.Fatalf("expected connection disconnected on stop")
	}
	if err := c.Initialize(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted after stop, got %v", err)
	}
}
