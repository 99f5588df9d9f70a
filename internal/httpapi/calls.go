package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"propdesk/internal/capture"
	"propdesk/internal/contacts"
	"propdesk/internal/device"
	"propdesk/internal/incoming"
	"propdesk/internal/session"
	"propdesk/internal/summary"
	"propdesk/internal/uploads"

	"github.com/gin-gonic/gin"
)

// --- Calls ---

type placeCallRequest struct {
	// Query is whatever the agent typed: a number, a contact ID, or a name.
	Query string `json:"query"`
}

// PlaceCall resolves the target and starts an outbound call.
func (h Handlers) PlaceCall(c *gin.Context) {
	console, workspaceID, ok := h.console(c)
	if !ok {
		return
	}
	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "query required"})
		return
	}

	target, err := h.Contacts.Resolve(c.Request.Context(), workspaceID, req.Query)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, contacts.ErrContactNotFound) {
			status = http.StatusNotFound
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}

	sess, err := console.Device.PlaceCall(c.Request.Context(), target.Number, target.Name,
		string(target.EntityType), target.EntityID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrCallInProgress):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a call is already in progress"})
		case errors.Is(err, device.ErrInvalidNumber):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid number"})
		default:
			// Transport failures still return the failed session so the
			// console can show the reason.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "session": sess})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// EndCall hangs up the live call. Safe to call with nothing active.
func (h Handlers) EndCall(c *gin.Context) {
	console, _, ok := h.console(c)
	if !ok {
		return
	}
	console.Device.EndCall()
	c.JSON(http.StatusOK, gin.H{"session": console.Device.Machine().Current()})
}

type digitsRequest struct {
	Digits string `json:"digits"`
}

// SendDigits forwards DTMF to the live call. Ignored unless connected.
func (h Handlers) SendDigits(c *gin.Context) {
	console, _, ok := h.console(c)
	if !ok {
		return
	}
	var req digitsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Digits == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "digits required"})
		return
	}
	console.Device.SendDigits(req.Digits)
	c.Status(http.StatusNoContent)
}

// DeviceState reports the current session snapshot and live duration.
func (h Handlers) DeviceState(c *gin.Context) {
	console, _, ok := h.console(c)
	if !ok {
		return
	}
	sess := console.Device.Machine().Current()
	resp := gin.H{"session": sess, "duration_seconds": console.Device.Machine().Duration()}
	if pending := console.Notifier.Pending(); pending != nil {
		resp["incoming"] = pending
	}
	c.JSON(http.StatusOK, resp)
}

// --- Incoming ---

// AcceptIncoming answers the pending ring.
func (h Handlers) AcceptIncoming(c *gin.Context) {
	console, _, ok := h.console(c)
	if !ok {
		return
	}
	sess, err := console.Notifier.Accept(c.Request.Context())
	if err != nil {
		if errors.Is(err, incoming.ErrNoPendingCall) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no pending call"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// DeclineIncoming rejects the pending ring at the provider.
func (h Handlers) DeclineIncoming(c *gin.Context) {
	console, _, ok := h.console(c)
	if !ok {
		return
	}
	if err := console.Notifier.Decline(c.Request.Context()); err != nil {
		if errors.Is(err, incoming.ErrNoPendingCall) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no pending call"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DismissIncoming hides the ring locally; the caller keeps ringing into
// voicemail.
func (h Handlers) DismissIncoming(c *gin.Context) {
	console, _, ok := h.console(c)
	if !ok {
		return
	}
	if err := console.Notifier.Dismiss(); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no pending call"})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Recordings ---

// UploadRecording accepts finished media from the console and stores it,
// optionally attaching it to a call log entry.
func (h Handlers) UploadRecording(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("media")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "media file required"})
		return
	}
	defer file.Close()

	// Same ceiling as the capture import path.
	limit := h.MaxMediaBytes
	if limit <= 0 {
		limit = 100 << 20
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read media"})
		return
	}
	if int64(len(data)) > limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "media too large"})
		return
	}

	mime := header.Header.Get("Content-Type")
	kind := capture.KindAudio
	mode := capture.SourceMicrophone
	if strings.HasPrefix(mime, "video/") {
		kind = capture.KindVideo
		mode = capture.SourceCamera
	}

	artifact, err := capture.NewClipArtifact(kind, capture.Clip{Bytes: data, MIMEType: mime}, mode)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported media type"})
		return
	}

	sessionID := c.PostForm("session_id")
	rec, err := h.Uploads.Send(c.Request.Context(), workspaceID, sessionID, artifact)
	if err != nil {
		if errors.Is(err, uploads.ErrUploadFailed) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upload failed, retry"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if entryID := c.PostForm("call_log_id"); entryID != "" && h.CallLog != nil {
		if err := h.CallLog.AttachRecording(c.Request.Context(), workspaceID, entryID, rec.URL); err != nil {
			c.JSON(http.StatusOK, gin.H{"recording": rec, "warning": "call log attach failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"recording": rec})
}

// --- Call log ---

func (h Handlers) ListCallLog(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	entries, err := h.CallLog.List(c.Request.Context(), workspaceID, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type summarizeRequest struct {
	Transcript []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"transcript"`
}

// SummarizeCall generates and stores a summary for a call log entry.
func (h Handlers) SummarizeCall(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	entryID := c.Param("id")

	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Transcript) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "transcript required"})
		return
	}

	lines := make([]summary.TranscriptLine, 0, len(req.Transcript))
	for _, l := range req.Transcript {
		lines = append(lines, summary.TranscriptLine{Speaker: l.Speaker, Text: l.Text})
	}

	text, err := h.Summary.Summarize(c.Request.Context(), lines)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "summary generation failed"})
		return
	}
	if err := h.CallLog.AttachSummary(c.Request.Context(), workspaceID, entryID, text); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call log entry not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": text})
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
