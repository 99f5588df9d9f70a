package telephony

import (
	"context"
	"net/http"
	"time"

	"propdesk/internal/incoming"
	"propdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler converts Twilio webhooks to internal types and writes
// TwiML. No business logic here: the inbound leg is published on the ring
// channel for the notifier, and status callbacks feed the device transport.
//
// Tenant scoping:
// - workspace_id is resolved from the dialed number via the injected
//   resolver, never trusted from the payload.

type WebhookHandler struct {
	// ResolveWorkspace maps the dialed number to the owning workspace.
	ResolveWorkspace func(ctx context.Context, toNumber string) (string, error)

	// IdentifyCaller fills the display name for a known number. Optional.
	IdentifyCaller func(ctx context.Context, workspaceID, number string) (name string)

	// PublishRing hands the inbound leg to the workspace's ring channel.
	PublishRing func(ctx context.Context, workspaceID string, r incoming.Ring) error

	// DeliverStatus feeds call progress into the device transport.
	DeliverStatus func(callSID, callStatus string, at time.Time)

	Now func() time.Time
}

func (h WebhookHandler) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseInboundCall(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	workspaceID, err := h.ResolveWorkspace(c.Request.Context(), form.To)
	if err != nil {
		log.Warn("workspace resolution failed", "to", form.To, "err", err)
		xml, rerr := RejectTwiML()
		if rerr != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		writeTwiML(c, xml)
		return
	}

	name := form.CallerName
	if name == "" && h.IdentifyCaller != nil {
		name = h.IdentifyCaller(c.Request.Context(), workspaceID, form.From)
	}

	ring := incoming.Ring{
		CallSID:    form.CallSid,
		FromNumber: form.From,
		FromName:   name,
	}
	if err := h.PublishRing(c.Request.Context(), workspaceID, ring); err != nil {
		log.Error("ring publish failed", "workspace_id", workspaceID, "call_sid", form.CallSid, "err", err)
		// The caller still gets hold treatment; the console just won't ring.
	}

	xml, err := RingingTwiML()
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	writeTwiML(c, xml)
}

func (h WebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseStatusCallback(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("status callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if h.DeliverStatus != nil {
		h.DeliverStatus(form.CallSid, form.CallStatus, now())
	}
	c.Status(http.StatusNoContent)
}

func writeTwiML(c *gin.Context, xml string) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, xml)
}
