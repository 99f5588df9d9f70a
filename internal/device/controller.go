package device

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"propdesk/internal/session"
)

// Controller manages one logical telephony device per authenticated session.
//
// Contract:
//   - Explicit lifecycle: Start before use, Stop on sign-out. Stop releases the
//     active connection and waits for the event pump to drain.
//   - Initialize is idempotent and coalesced: concurrent callers share a single
//     in-flight registration.
//   - Exactly one live session at a time; PlaceCall while another call is live
//     fails with session.ErrCallInProgress instead of dropping the prior call.
//   - Transport failures never escape as panics; they land on the session as
//     status failed with a human-readable reason.
type Controller struct {
	mu sync.Mutex

	transport Transport
	identity  string
	workspace string
	from      string

	machine *session.Machine
	conn    Conn
	pumpWG  sync.WaitGroup

	started     bool
	registered  bool
	registering chan struct{}
	regErr      error

	// onChange receives a snapshot after every session state change.
	onChange func(*session.Session)

	// acquireCap/releaseCap guard the per-workspace live call limit.
	// Optional; wired to the redis concurrency cap helpers in main.
	acquireCap func(ctx context.Context) (bool, error)
	releaseCap func(ctx context.Context) error

	log *slog.Logger
}

// Options configures a Controller.
type Options struct {
	Identity    string
	WorkspaceID string
	// From is the caller ID used for outbound calls.
	From string

	OnChange   func(*session.Session)
	AcquireCap func(ctx context.Context) (bool, error)
	ReleaseCap func(ctx context.Context) error

	Logger *slog.Logger
}

func NewController(t Transport, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	machine := session.NewMachine()
	machine.SetWorkspaceID(opts.WorkspaceID)
	return &Controller{
		transport:  t,
		identity:   opts.Identity,
		workspace:  opts.WorkspaceID,
		from:       opts.From,
		machine:    machine,
		onChange:   opts.OnChange,
		acquireCap: opts.AcquireCap,
		releaseCap: opts.ReleaseCap,
		log:        log,
	}
}

// Machine exposes the session machine for read access (duration polling,
// current state) and for adopting accepted inbound calls.
func (c *Controller) Machine() *session.Machine { return c.machine }

func (c *Controller) Start() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// Stop tears the device down: the active call is disconnected, the event pump
// drained, and further operations fail until Start is called again.
func (c *Controller) Stop() {
	c.mu.Lock()
	conn := c.conn
	c.started = false
	c.registered = false
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			c.log.Warn("disconnect on stop failed", "err", err)
		}
	}
	c.pumpWG.Wait()
}

// Initialize pre-warms the transport registration. Safe to call repeatedly;
// concurrent calls coalesce into one registration attempt. A failed attempt
// is retried on the next call.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.registered {
		c.mu.Unlock()
		return nil
	}
	if c.registering != nil {
		done := c.registering
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
		err := c.regErr
		c.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	c.registering = done
	c.mu.Unlock()

	err := c.transport.Register(ctx, c.identity)
	if err != nil {
		err = &TransportError{Op: "register", Err: err}
	}

	c.mu.Lock()
	c.registered = err == nil
	c.regErr = err
	c.registering = nil
	close(done)
	c.mu.Unlock()
	return err
}

// PlaceCall dials target. entityType/entityID tag the call with the
// back-office record it was placed for (may be empty).
//
// On a transport connect failure the returned session is in status failed and
// the error is a *TransportError; the device remains usable.
func (c *Controller) PlaceCall(ctx context.Context, target, displayName, entityType, entityID string) (*session.Session, error) {
	number, err := NormalizeNumber(target)
	if err != nil {
		return nil, err
	}

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	if c.acquireCap != nil {
		ok, err := c.acquireCap(ctx)
		if err != nil {
			return nil, &TransportError{Op: "call cap", Err: err}
		}
		if !ok {
			return nil, ErrCallCapReached
		}
	}

	if _, err := c.machine.Begin(session.DirectionOutbound, number, displayName); err != nil {
		c.releaseCapQuiet()
		return nil, err
	}
	c.machine.SetRouteContext(entityType, entityID)
	c.notify()

	conn, err := c.transport.Connect(ctx, ConnectParams{
		WorkspaceID: c.workspace,
		From:        c.from,
		To:          number,
		EntityType:  entityType,
		EntityID:    entityID,
	})
	if err != nil {
		failed, _ := c.machine.Apply(session.EventError, err.Error())
		c.releaseCapQuiet()
		c.notify()
		return failed, &TransportError{Op: "connect", Err: err}
	}

	c.machine.SetProviderCallID(conn.ID())
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.pumpWG.Add(1)
	go c.pump(conn)

	return c.machine.Current(), nil
}

// AdoptInbound installs an accepted inbound connection as the active call.
// The incoming notifier creates the ringing session before calling this.
func (c *Controller) AdoptInbound(conn Conn) {
	c.machine.SetProviderCallID(conn.ID())
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.pumpWG.Add(1)
	go c.pump(conn)
	c.notify()
}

// EndCall terminates the active connection. Calling it without an active call
// is a no-op, not an error.
func (c *Controller) EndCall() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	if _, err := c.machine.Apply(session.EventHangup, ""); err == nil {
		c.notify()
	}
	if err := conn.Disconnect(); err != nil {
		c.log.Warn("hangup failed", "err", err)
	}
}

// SendDigits forwards a DTMF tone while a call is in progress. Tones pressed
// before the call connects are silently dropped; the user may mash the keypad
// while the far end is still ringing.
func (c *Controller) SendDigits(digits string) {
	s := c.machine.Current()
	if s == nil || s.Status != session.StatusInProgress {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.SendDigits(digits); err != nil {
		c.log.Warn("dtmf send failed", "digits", digits, "err", err)
	}
}

// pump applies transport events to the session machine in arrival order.
// It exits after the first terminal transition or when the event channel
// closes, releasing the connection slot either way.
func (c *Controller) pump(conn Conn) {
	defer c.pumpWG.Done()

	sawTerminal := false
	for ev := range conn.Events() {
		var sev session.Event
		switch ev.Kind {
		case EventRinging:
			sev = session.EventRinging
		case EventAccepted:
			sev = session.EventAnswered
		case EventDisconnected:
			sev = session.EventDisconnected
		case EventError:
			sev = session.EventError
		default:
			c.log.Warn("unknown transport event", "kind", string(ev.Kind))
			continue
		}

		s, err := c.machine.Apply(sev, ev.Reason)
		if err != nil {
			c.log.Warn("transport event rejected", "kind", string(ev.Kind), "err", err)
			continue
		}
		c.notify()
		if s.Status.Terminal() {
			sawTerminal = true
			break
		}
	}

	if !sawTerminal {
		// Channel closed without a terminal event: treat as a transport drop.
		if s, err := c.machine.Apply(session.EventError, "transport closed"); err == nil && s.Status == session.StatusFailed {
			c.notify()
		}
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	c.releaseCapQuiet()
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	if s := c.machine.Current(); s != nil {
		c.onChange(s)
	}
}

func (c *Controller) releaseCapQuiet() {
	if c.releaseCap == nil {
		return
	}
	if err := c.releaseCap(context.Background()); err != nil {
		c.log.Warn("call cap release failed", "err", err)
	}
}

// NormalizeNumber strips formatting and applies minimal shape validation:
// optional leading +, 7 to 15 digits.
func NormalizeNumber(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidNumber
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting noise
		default:
			return "", ErrInvalidNumber
		}
	}

	n := b.String()
	digits := strings.TrimPrefix(n, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", ErrInvalidNumber
	}
	return n, nil
}
