package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"propdesk/internal/audit"
	"propdesk/internal/auth"
	"propdesk/internal/calllog"
	"propdesk/internal/capture"
	"propdesk/internal/config"
	"propdesk/internal/contacts"
	"propdesk/internal/device"
	"propdesk/internal/expenses"
	"propdesk/internal/incoming"
	"propdesk/internal/owners"
	"propdesk/internal/rbac"
	"propdesk/internal/uploads"
	"propdesk/internal/vendors"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeTransport completes calls immediately: every Connect returns a live
// conn that has already been accepted.
type fakeTransport struct {
	connectErr error
	rejected   []string
}

func (t *fakeTransport) Register(ctx context.Context, identity string) error { return nil }

func (t *fakeTransport) Connect(ctx context.Context, params device.ConnectParams) (device.Conn, error) {
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	events := make(chan device.Event, 2)
	events <- device.Event{Kind: device.EventRinging, OccurredAt: time.Now()}
	events <- device.Event{Kind: device.EventAccepted, OccurredAt: time.Now()}
	return &fakeConn{id: "CA123", events: events}, nil
}

func (t *fakeTransport) Reject(ctx context.Context, providerCallID string) error {
	t.rejected = append(t.rejected, providerCallID)
	return nil
}

type fakeConn struct {
	id     string
	events chan device.Event
}

func (c *fakeConn) ID() string                     { return c.id }
func (c *fakeConn) SendDigits(digits string) error { return nil }
func (c *fakeConn) Disconnect() error {
	select {
	case c.events <- device.Event{Kind: device.EventDisconnected, OccurredAt: time.Now()}:
	default:
	}
	return nil
}
func (c *fakeConn) Events() <-chan device.Event { return c.events }

type nullChannel struct{}

func (nullChannel) Subscribe(ctx context.Context) (<-chan incoming.Ring, func(), error) {
	ch := make(chan incoming.Ring)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }, nil
}

type memoryStore struct {
	uploaded map[string][]byte
}

func (s *memoryStore) Upload(ctx context.Context, data []byte, contentType, path string) (string, error) {
	if s.uploaded == nil {
		s.uploaded = map[string][]byte{}
	}
	s.uploaded[path] = data
	return "https://cdn.test/" + path, nil
}

// identity injects an authenticated principal the way the JWT middleware
// would.
func identity(workspaceID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "user-1", workspaceID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newTestHandlers(t *testing.T) (Handlers, *fakeTransport) {
	t.Helper()

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "propdesk-test",
		JWTAudience:     "propdesk",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	transport := &fakeTransport{}
	ctrl := device.NewController(transport, device.Options{
		Identity:    "agent-ws1",
		WorkspaceID: "ws1",
		From:        "+14045550000",
	})
	ctrl.Start()
	t.Cleanup(ctrl.Stop)

	notifier := incoming.NewNotifier(incoming.Options{
		Channel: nullChannel{},
		Device:  ctrl,
	})
	if err := notifier.Start(context.Background()); err != nil {
		t.Fatalf("notifier start: %v", err)
	}
	t.Cleanup(notifier.Stop)

	registry := NewConsoleRegistry()
	registry.Put("ws1", &Console{Device: ctrl, Notifier: notifier})

	contactRepo := &contacts.MemoryRepo{Contacts: []contacts.Contact{
		{ID: "c1", WorkspaceID: "ws1", Name: "Dana Owner", Phone: "+14045551234", Type: contacts.TypeOwner},
	}}

	h := Handlers{
		Auth:     mgr,
		Consoles: registry,
		Contacts: contacts.NewService(contactRepo),
		Owners:   owners.NewService(owners.NewMemoryRepo()),
		Vendors:  vendors.NewService(vendors.NewMemoryRepo()),
		Expenses: expenses.NewService(expenses.NewMemoryRepo()),
		CallLog:  calllog.NewService(&calllog.MemoryRepo{}),
		Uploads:  uploads.NewService(&memoryStore{}, nil),
	}
	return h, transport
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginAndRefresh(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.POST("/login", h.Login)
	router.POST("/refresh", h.Refresh)

	w := doJSON(t, router, http.MethodPost, "/login",
		gin.H{"user_id": "u1", "workspace_id": "ws1", "role": rbac.RoleAgent})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens in login response")
	}

	w = doJSON(t, router, http.MethodPost, "/refresh", gin.H{"refresh_token": pair.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/refresh", gin.H{"refresh_token": pair.AccessToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: expected 401, got %d", w.Code)
	}
}

func TestPlaceCallResolvesContact(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.POST("/calls", identity("ws1", rbac.RoleAgent), h.PlaceCall)
	router.GET("/device", identity("ws1", rbac.RoleAgent), h.DeviceState)
	router.POST("/calls/end", identity("ws1", rbac.RoleAgent), h.EndCall)

	w := doJSON(t, router, http.MethodPost, "/calls", gin.H{"query": "Dana"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Session struct {
			Direction         string `json:"direction"`
			CounterpartNumber string `json:"counterpart_number"`
		} `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session.CounterpartNumber != "+14045551234" {
		t.Fatalf("expected resolved number, got %q", resp.Session.CounterpartNumber)
	}

	// Second call while one is live conflicts.
	w = doJSON(t, router, http.MethodPost, "/calls", gin.H{"query": "+14045559999"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/calls/end", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end call: expected 200, got %d", w.Code)
	}
}

func TestPlaceCallUnknownContact(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.POST("/calls", identity("ws1", rbac.RoleAgent), h.PlaceCall)

	w := doJSON(t, router, http.MethodPost, "/calls", gin.H{"query": "Nobody"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestConsoleRequiresWorkspaceMatch(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.GET("/device", identity("ws-other", rbac.RoleAgent), h.DeviceState)

	req := httptest.NewRequest(http.MethodGet, "/device", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for workspace without console, got %d", w.Code)
	}
}

func TestAcceptWithoutPendingRing(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.POST("/incoming/accept", identity("ws1", rbac.RoleAgent), h.AcceptIncoming)

	w := doJSON(t, router, http.MethodPost, "/incoming/accept", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestOwnerCRUDRoundTrip(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	grp := router.Group("/owners", identity("ws1", rbac.RoleManager))
	grp.POST("", h.CreateOwner)
	grp.GET("/:id", h.GetOwner)
	grp.PUT("/:id", h.UpdateOwner)
	grp.DELETE("/:id", h.DeleteOwner)

	w := doJSON(t, router, http.MethodPost, "/owners",
		gin.H{"name": "Alice", "phone": "+14045551111"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var created struct {
		Owner owners.Owner `json:"owner"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, router, http.MethodPut, "/owners/"+created.Owner.ID,
		gin.H{"name": "Alice B", "phone": "+14045551111"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/owners/"+created.Owner.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/owners/"+created.Owner.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", w.Code)
	}
}

func TestExpenseTransitionEndpoints(t *testing.T) {
	h, _ := newTestHandlers(t)
	auditRepo := audit.NewMemoryRepo()
	h.Audit = audit.NewService(auditRepo)
	router := gin.New()
	grp := router.Group("/expenses", identity("ws1", rbac.RoleManager))
	grp.POST("", h.CreateExpense)
	grp.POST("/:id/submit", h.TransitionExpense("submit"))
	grp.POST("/:id/approve", h.TransitionExpense("approve"))
	grp.POST("/:id/pay", h.TransitionExpense("pay"))

	w := doJSON(t, router, http.MethodPost, "/expenses", gin.H{
		"description": "Drain repair", "amount_minor": 12500, "currency": "usd",
		"incurred_at": time.Now().UTC().Format(time.RFC3339),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var created struct {
		Expense expenses.Expense `json:"expense"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Approving a draft skips submit and must conflict.
	w = doJSON(t, router, http.MethodPost, "/expenses/"+created.Expense.ID+"/approve", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("approve draft: expected 409, got %d (%s)", w.Code, w.Body.String())
	}

	for _, step := range []string{"submit", "approve", "pay"} {
		w = doJSON(t, router, http.MethodPost, "/expenses/"+created.Expense.ID+"/"+step, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", step, w.Code, w.Body.String())
		}
	}

	// Only the successful transitions leave an audit trail.
	events := auditRepo.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 audit events, got %d: %+v", len(events), events)
	}
	last := events[2]
	if last.Type != audit.EventTypeExpenseAction || last.ExpenseID != created.Expense.ID {
		t.Fatalf("unexpected audit event: %+v", last)
	}
	if last.ActorUserID != "user-1" || last.Message != "expense pay" {
		t.Fatalf("audit actor not recorded: %+v", last)
	}
}

func TestUploadRecording(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.POST("/recordings", identity("ws1", rbac.RoleAgent), h.UploadRecording)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="media"; filename="note.webm"`}
	hdr["Content-Type"] = []string{"audio/webm"}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("fake-audio-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.WriteField("session_id", "sess-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/recordings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Recording uploads.Recording `json:"recording"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Recording.URL == "" || resp.Recording.Kind != capture.KindAudio {
		t.Fatalf("unexpected recording: %+v", resp.Recording)
	}
}

func TestUploadRecordingRejectsUnsupportedType(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := gin.New()
	router.POST("/recordings", identity("ws1", rbac.RoleAgent), h.UploadRecording)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="media"; filename="doc.pdf"`},
		"Content-Type":        {"application/pdf"},
	}
	part, _ := mw.CreatePart(hdr)
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/recordings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestUploadRecordingRejectsOversizedMedia(t *testing.T) {
	h, _ := newTestHandlers(t)
	h.MaxMediaBytes = 8
	router := gin.New()
	router.POST("/recordings", identity("ws1", rbac.RoleAgent), h.UploadRecording)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="media"; filename="big.webm"`},
		"Content-Type":        {"audio/webm"},
	}
	part, _ := mw.CreatePart(hdr)
	_, _ = part.Write([]byte("way more than eight bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/recordings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestResolveContactAmbiguous(t *testing.T) {
	h, _ := newTestHandlers(t)
	repo := &contacts.MemoryRepo{Contacts: []contacts.Contact{
		{ID: "c1", WorkspaceID: "ws1", Name: "Sam One", Phone: "+14045551111", Type: contacts.TypeLead},
		{ID: "c2", WorkspaceID: "ws1", Name: "Sam Two", Phone: "+14045552222", Type: contacts.TypeLead},
	}}
	h.Contacts = contacts.NewService(repo)

	router := gin.New()
	router.GET("/contacts/resolve", identity("ws1", rbac.RoleAgent), h.ResolveContact)

	req := httptest.NewRequest(http.MethodGet, "/contacts/resolve?q=Sam", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for ambiguous query, got %d (%s)", w.Code, w.Body.String())
	}
}
