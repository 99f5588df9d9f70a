package incoming

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"propdesk/internal/device"
	"propdesk/internal/session"
)

// Ring is one inbound-call record from the provider feed.
type Ring struct {
	CallSID    string `json:"call_sid"`
	FromNumber string `json:"from_number"`
	FromName   string `json:"from_name,omitempty"`
}

// Channel is a subscribable feed of inbound rings. Implementations must stop
// delivering after the returned cancel func is called.
type Channel interface {
	Subscribe(ctx context.Context) (<-chan Ring, func(), error)
}

// Event is the pending incoming-call notification shown to the user.
// Consumed (accepted/declined/dismissed) exactly once.
type Event struct {
	CallSID    string    `json:"call_sid"`
	FromNumber string    `json:"from_number"`
	FromName   string    `json:"from_name,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	RingCount  int       `json:"ring_count"`
}

var (
	ErrNoPendingCall = errors.New("incoming: no pending call")
	ErrNotStarted    = errors.New("incoming: notifier not started")
)

// ClearReason says why a pending event left the queue.
type ClearReason string

const (
	ClearAccepted     ClearReason = "accepted"
	ClearDeclined     ClearReason = "declined"
	ClearDismissed    ClearReason = "dismissed"
	ClearExpired      ClearReason = "expired"
	ClearBusyDeclined ClearReason = "busy_auto_declined"
)

// Config holds notifier timings. Defaults match the product behavior;
// tests inject short values.
type Config struct {
	// RingTimeout auto-dismisses an unanswered event. Default 30s.
	RingTimeout time.Duration
	// RingInterval drives the visual ring counter. Default 3s.
	RingInterval time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.RingTimeout <= 0 {
		out.RingTimeout = 30 * time.Second
	}
	if out.RingInterval <= 0 {
		out.RingInterval = 3 * time.Second
	}
	return out
}

// Notifier surfaces inbound calls process-wide, independent of which screen
// is active. Scoped to the authenticated session: Start on sign-in, Stop on
// sign-out.
//
// Queue policy (deliberate, see DESIGN.md): at most one pending event plus
// one queued follow-up; further simultaneous rings are dropped. A ring that
// arrives while an outbound call is live is auto-declined at the transport
// rather than shown over the call.
type Notifier struct {
	mu sync.Mutex

	cfg     Config
	channel Channel
	device  *device.Controller

	// Answer turns an accepted ring into a live transport connection.
	// Optional: without it Accept still produces the session handle.
	answer func(ctx context.Context, callSID string) (device.Conn, error)
	// reject declines the ring at the transport.
	reject func(ctx context.Context, callSID string) error

	onRing    func(Event)
	onCleared func(Event, ClearReason)

	pending *Event
	queued  *Event
	gen     uint64 // invalidates timers from resolved events

	dismissTimer *time.Timer
	tickerStop   chan struct{}

	unsubscribe func()
	started     bool

	clock func() time.Time
	log   *slog.Logger
}

type Options struct {
	Config  Config
	Channel Channel
	Device  *device.Controller

	Answer func(ctx context.Context, callSID string) (device.Conn, error)
	Reject func(ctx context.Context, callSID string) error

	// OnRing fires when an event becomes pending and on every ring tick.
	OnRing func(Event)
	// OnCleared fires when a pending event is consumed or expires.
	OnCleared func(Event, ClearReason)

	Logger *slog.Logger
}

func NewNotifier(opts Options) *Notifier {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		cfg:       opts.Config.withDefaults(),
		channel:   opts.Channel,
		device:    opts.Device,
		answer:    opts.Answer,
		reject:    opts.Reject,
		onRing:    opts.OnRing,
		onCleared: opts.OnCleared,
		clock:     time.Now,
		log:       log,
	}
}

// SetClock overrides the time source. Test use only; call before Start.
func (n *Notifier) SetClock(clock func() time.Time) {
	n.clock = clock
}

// Start subscribes to the ring feed and begins surfacing events.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return nil
	}
	n.started = true
	n.mu.Unlock()

	rings, cancel, err := n.channel.Subscribe(ctx)
	if err != nil {
		n.mu.Lock()
		n.started = false
		n.mu.Unlock()
		return err
	}
	n.mu.Lock()
	n.unsubscribe = cancel
	n.mu.Unlock()

	go func() {
		for r := range rings {
			n.handleRing(r)
		}
	}()
	return nil
}

// Stop unsubscribes and clears all pending state and timers.
func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel := n.unsubscribe
	n.unsubscribe = nil
	n.started = false
	n.clearLocked()
	n.queued = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Pending returns a copy of the current pending event, if any.
func (n *Notifier) Pending() *Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == nil {
		return nil
	}
	cp := *n.pending
	return &cp
}

func (n *Notifier) handleRing(r Ring) {
	if r.CallSID == "" || r.FromNumber == "" {
		n.log.Warn("dropping malformed ring", "call_sid", r.CallSID)
		return
	}

	// Busy precedence: never pop a modal over a live call.
	if n.device != nil && n.device.Machine().LiveSession() != nil {
		n.log.Info("auto-declining inbound ring during live call", "call_sid", r.CallSID)
		n.rejectQuiet(r.CallSID)
		if n.onCleared != nil {
			n.onCleared(Event{CallSID: r.CallSID, FromNumber: r.FromNumber, FromName: r.FromName}, ClearBusyDeclined)
		}
		return
	}

	ev := Event{
		CallSID:    r.CallSID,
		FromNumber: r.FromNumber,
		FromName:   r.FromName,
		ReceivedAt: n.now(),
	}

	n.mu.Lock()
	switch {
	case n.pending == nil:
		n.setPendingLocked(ev)
		n.mu.Unlock()
		n.notifyRing(ev)
	case n.queued == nil:
		n.queued = &ev
		n.mu.Unlock()
	default:
		n.mu.Unlock()
		n.log.Info("dropping simultaneous inbound ring", "call_sid", r.CallSID)
	}
}

// Accept consumes the pending event and turns it into an inbound call session.
func (n *Notifier) Accept(ctx context.Context) (*session.Session, error) {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return nil, ErrNotStarted
	}
	if n.pending == nil {
		n.mu.Unlock()
		return nil, ErrNoPendingCall
	}
	ev := *n.pending
	n.clearLocked()
	n.mu.Unlock()

	if _, err := n.device.Machine().Begin(session.DirectionInbound, ev.FromNumber, ev.FromName); err != nil {
		// Device became busy between ring and accept; decline to the caller.
		n.rejectQuiet(ev.CallSID)
		n.finishResolve(ev, ClearDeclined)
		return nil, err
	}
	n.device.Machine().SetProviderCallID(ev.CallSID)

	if n.answer != nil {
		conn, err := n.answer(ctx, ev.CallSID)
		if err != nil {
			failed, _ := n.device.Machine().Apply(session.EventError, err.Error())
			n.finishResolve(ev, ClearAccepted)
			return failed, &device.TransportError{Op: "answer", Err: err}
		}
		n.device.AdoptInbound(conn)
	}

	n.finishResolve(ev, ClearAccepted)
	return n.device.Machine().Current(), nil
}

// Decline rejects the pending call at the transport and clears it.
func (n *Notifier) Decline(ctx context.Context) error {
	n.mu.Lock()
	if n.pending == nil {
		n.mu.Unlock()
		return ErrNoPendingCall
	}
	ev := *n.pending
	n.clearLocked()
	n.mu.Unlock()

	var err error
	if n.reject != nil {
		err = n.reject(ctx, ev.CallSID)
	}
	n.finishResolve(ev, ClearDeclined)
	return err
}

// Dismiss clears the pending event locally without touching the transport.
// Used for ring timeout and for the user closing the modal.
func (n *Notifier) Dismiss() error {
	n.mu.Lock()
	if n.pending == nil {
		n.mu.Unlock()
		return ErrNoPendingCall
	}
	ev := *n.pending
	n.clearLocked()
	n.mu.Unlock()

	n.finishResolve(ev, ClearDismissed)
	return nil
}

// setPendingLocked installs ev and arms its timers. Caller holds the lock.
func (n *Notifier) setPendingLocked(ev Event) {
	n.pending = &ev
	n.gen++
	gen := n.gen

	n.dismissTimer = time.AfterFunc(n.cfg.RingTimeout, func() {
		n.expire(gen)
	})

	stop := make(chan struct{})
	n.tickerStop = stop
	go n.ringLoop(gen, stop)
}

// clearLocked cancels timers and drops the pending event. Caller holds the lock.
func (n *Notifier) clearLocked() {
	if n.dismissTimer != nil {
		n.dismissTimer.Stop()
		n.dismissTimer = nil
	}
	if n.tickerStop != nil {
		close(n.tickerStop)
		n.tickerStop = nil
	}
	n.pending = nil
	n.gen++
}

// finishResolve reports the outcome and surfaces a queued follow-up ring,
// whose ring-timeout clock starts now.
func (n *Notifier) finishResolve(ev Event, reason ClearReason) {
	if n.onCleared != nil {
		n.onCleared(ev, reason)
	}

	n.mu.Lock()
	next := n.queued
	n.queued = nil
	if next == nil || n.pending != nil || !n.started {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	// Queued rings obey the same busy precedence as fresh ones: accepting
	// the previous ring leaves a live session on the device.
	if n.device != nil && n.device.Machine().LiveSession() != nil {
		n.log.Info("auto-declining queued inbound ring during live call", "call_sid", next.CallSID)
		n.rejectQuiet(next.CallSID)
		if n.onCleared != nil {
			n.onCleared(Event{CallSID: next.CallSID, FromNumber: next.FromNumber, FromName: next.FromName}, ClearBusyDeclined)
		}
		return
	}

	promoted := *next
	promoted.ReceivedAt = n.now()
	promoted.RingCount = 0
	n.mu.Lock()
	if n.pending != nil || !n.started {
		n.mu.Unlock()
		return
	}
	n.setPendingLocked(promoted)
	n.mu.Unlock()
	n.notifyRing(promoted)
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if n.pending == nil || n.gen != gen {
		n.mu.Unlock()
		return
	}
	ev := *n.pending
	n.clearLocked()
	n.mu.Unlock()

	n.finishResolve(ev, ClearExpired)
}

// ringLoop increments the visual ring counter while the event stays pending.
func (n *Notifier) ringLoop(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(n.cfg.RingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.mu.Lock()
			if n.pending == nil || n.gen != gen {
				n.mu.Unlock()
				return
			}
			n.pending.RingCount++
			ev := *n.pending
			n.mu.Unlock()
			n.notifyRing(ev)
		}
	}
}

func (n *Notifier) notifyRing(ev Event) {
	if n.onRing != nil {
		n.onRing(ev)
	}
}

func (n *Notifier) rejectQuiet(callSID string) {
	if n.reject == nil {
		return
	}
	if err := n.reject(context.Background(), callSID); err != nil {
		n.log.Warn("transport reject failed", "call_sid", callSID, "err", err)
	}
}

func (n *Notifier) now() time.Time {
	return n.clock().UTC()
}
