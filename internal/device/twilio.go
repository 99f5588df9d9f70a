package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioTransport drives calls over the Twilio REST API.
//
// Lifecycle events come back asynchronously through the voice status webhook;
// the webhook handler feeds them in via DeliverStatus, which routes them to
// the right connection's event channel. Keep this adapter free of business
// logic: it only translates provider statuses into Event values.
type TwilioTransport struct {
	client *twilio.RestClient

	// VoiceURL is the TwiML URL Twilio fetches when the callee answers.
	voiceURL string
	// StatusCallbackURL receives call progress webhooks.
	statusCallbackURL string

	conns sync.Map // call SID -> *twilioConn
}

type TwilioTransportConfig struct {
	AccountSID        string
	AuthToken         string
	VoiceURL          string
	StatusCallbackURL string
}

func NewTwilioTransport(cfg TwilioTransportConfig) *TwilioTransport {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioTransport{
		client:            client,
		voiceURL:          cfg.VoiceURL,
		statusCallbackURL: cfg.StatusCallbackURL,
	}
}

func (t *TwilioTransport) Register(ctx context.Context, identity string) error {
	_ = identity
	// Cheap authenticated request; verifies credentials and warms the client.
	if _, err := t.client.Api.FetchBalance(&openapi.FetchBalanceParams{}); err != nil {
		return fmt.Errorf("twilio credential check: %w", err)
	}
	return nil
}

func (t *TwilioTransport) Connect(ctx context.Context, p ConnectParams) (Conn, error) {
	params := &openapi.CreateCallParams{}
	params.SetTo(p.To)
	params.SetFrom(p.From)
	params.SetUrl(t.voiceURL)
	params.SetStatusCallback(t.statusCallbackURL)
	params.SetStatusCallbackEvent([]string{"ringing", "answered", "completed"})

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return nil, err
	}
	if resp.Sid == nil || *resp.Sid == "" {
		return nil, fmt.Errorf("twilio create call: missing sid")
	}

	conn := &twilioConn{
		sid:    *resp.Sid,
		client: t.client,
		events: make(chan Event, 16),
	}
	t.conns.Store(conn.sid, conn)
	return conn, nil
}

// Answer bridges a ringing inbound call to the console identity and returns
// the tracked connection. The caller was parked on hold TwiML by the voice
// webhook; redirecting the call connects the two legs.
func (t *TwilioTransport) Answer(ctx context.Context, callSID, bridgeTwiML string) (Conn, error) {
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(bridgeTwiML)
	if _, err := t.client.Api.UpdateCall(callSID, params); err != nil {
		return nil, fmt.Errorf("twilio answer: %w", err)
	}

	conn := &twilioConn{
		sid:    callSID,
		client: t.client,
		events: make(chan Event, 16),
	}
	t.conns.Store(callSID, conn)
	// The redirect connects both legs right away; status callbacks only fire
	// on terminal transitions from here.
	conn.deliver(Event{Kind: EventAccepted, OccurredAt: time.Now().UTC()})
	return conn, nil
}

func (t *TwilioTransport) Reject(ctx context.Context, providerCallID string) error {
	params := &openapi.UpdateCallParams{}
	params.SetStatus("completed")
	_, err := t.client.Api.UpdateCall(providerCallID, params)
	return err
}

// DeliverStatus routes a status callback to the owning connection. Unknown
// SIDs are ignored; Twilio retries webhooks and calls may already be cleaned up.
func (t *TwilioTransport) DeliverStatus(callSid, callStatus string, at time.Time) {
	v, ok := t.conns.Load(callSid)
	if !ok {
		return
	}
	conn := v.(*twilioConn)

	var ev Event
	switch callStatus {
	case "ringing":
		ev = Event{Kind: EventRinging, OccurredAt: at}
	case "in-progress", "answered":
		ev = Event{Kind: EventAccepted, OccurredAt: at}
	case "completed":
		ev = Event{Kind: EventDisconnected, OccurredAt: at}
	case "busy", "no-answer", "failed", "canceled":
		ev = Event{Kind: EventError, Reason: "call " + callStatus, OccurredAt: at}
	default:
		return
	}

	conn.deliver(ev)
	if ev.Kind == EventDisconnected || ev.Kind == EventError {
		t.conns.Delete(callSid)
		conn.closeEvents()
	}
}

type twilioConn struct {
	sid    string
	client *twilio.RestClient

	events  chan Event
	closeMu sync.Mutex
	closed  bool
}

func (c *twilioConn) ID() string { return c.sid }

func (c *twilioConn) SendDigits(digits string) error {
	// Twilio has no direct DTMF injection on a live call; redirecting the call
	// through a Play-digits TwiML document is the documented approach.
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(fmt.Sprintf(`<Response><Play digits=%q></Play><Pause length="3600"/></Response>`, digits))
	_, err := c.client.Api.UpdateCall(c.sid, params)
	return err
}

func (c *twilioConn) Disconnect() error {
	params := &openapi.UpdateCallParams{}
	params.SetStatus("completed")
	_, err := c.client.Api.UpdateCall(c.sid, params)
	return err
}

func (c *twilioConn) Events() <-chan Event { return c.events }

func (c *twilioConn) deliver(ev Event) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		// Never block webhook handling on a slow consumer.
	}
}

func (c *twilioConn) closeEvents() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}
