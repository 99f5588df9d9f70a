package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"propdesk/internal/incoming"

	"github.com/gin-gonic/gin"
)

func postForm(t *testing.T, r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestParseInboundCall(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&From=%2B15551234567&To=%2B15557654321&CallerName=Dana")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseInboundCall(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSid != "CA123" {
		t.Fatalf("expected CallSid")
	}
	if form.From != "+15551234567" || form.To != "+15557654321" {
		t.Fatalf("unexpected from/to: %q %q", form.From, form.To)
	}
	if form.CallerName != "Dana" {
		t.Fatalf("expected caller name, got %q", form.CallerName)
	}
}

func TestHandleVoicePublishesRing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var published struct {
		workspaceID string
		ring        incoming.Ring
	}
	h := WebhookHandler{
		ResolveWorkspace: func(ctx context.Context, to string) (string, error) {
			if to != "+15557654321" {
				t.Fatalf("unexpected dialed number %q", to)
			}
			return "ws1", nil
		},
		IdentifyCaller: func(ctx context.Context, workspaceID, number string) string {
			return "Dana Ortiz"
		},
		PublishRing: func(ctx context.Context, workspaceID string, r incoming.Ring) error {
			published.workspaceID = workspaceID
			published.ring = r
			return nil
		},
	}

	r := gin.New()
	r.POST("/webhooks/twilio/voice", h.HandleVoice)

	w := postForm(t, r, "/webhooks/twilio/voice", url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+15557654321"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Fatalf("expected xml response, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<Pause") {
		t.Fatalf("expected hold twiml, got %s", w.Body.String())
	}
	if published.workspaceID != "ws1" {
		t.Fatalf("ring not published: %+v", published)
	}
	if published.ring.CallSID != "CA123" || published.ring.FromName != "Dana Ortiz" {
		t.Fatalf("unexpected ring: %+v", published.ring)
	}
}

func TestHandleVoiceUnknownNumberRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := WebhookHandler{
		ResolveWorkspace: func(ctx context.Context, to string) (string, error) {
			return "", errors.New("no such number")
		},
		PublishRing: func(ctx context.Context, workspaceID string, r incoming.Ring) error {
			t.Fatalf("must not publish for unknown numbers")
			return nil
		},
	}

	r := gin.New()
	r.POST("/webhooks/twilio/voice", h.HandleVoice)

	w := postForm(t, r, "/webhooks/twilio/voice", url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+19990000000"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with reject twiml, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Reject") {
		t.Fatalf("expected reject twiml, got %s", w.Body.String())
	}
}

func TestHandleVoiceMissingCallSid(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := WebhookHandler{
		ResolveWorkspace: func(ctx context.Context, to string) (string, error) { return "ws1", nil },
		PublishRing:      func(ctx context.Context, workspaceID string, r incoming.Ring) error { return nil },
	}
	r := gin.New()
	r.POST("/webhooks/twilio/voice", h.HandleVoice)

	w := postForm(t, r, "/webhooks/twilio/voice", url.Values{"From": {"+15551234567"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleStatusFeedsTransport(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotSID, gotStatus string
	fixed := time.Unix(1700000000, 0).UTC()
	h := WebhookHandler{
		DeliverStatus: func(callSID, callStatus string, at time.Time) {
			gotSID, gotStatus = callSID, callStatus
			if !at.Equal(fixed) {
				t.Fatalf("expected injected clock time, got %v", at)
			}
		},
		Now: func() time.Time { return fixed },
	}

	r := gin.New()
	r.POST("/webhooks/twilio/status", h.HandleStatus)

	w := postForm(t, r, "/webhooks/twilio/status", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"in-progress"},
	})

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if gotSID != "CA123" || gotStatus != "in-progress" {
		t.Fatalf("status not delivered: %q %q", gotSID, gotStatus)
	}
}
