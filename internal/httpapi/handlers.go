package httpapi

import (
	"net/http"
	"sync"
	"time"

	"propdesk/internal/audit"
	"propdesk/internal/auth"
	"propdesk/internal/calllog"
	"propdesk/internal/contacts"
	"propdesk/internal/device"
	"propdesk/internal/dispatch"
	"propdesk/internal/expenses"
	"propdesk/internal/incoming"
	"propdesk/internal/owners"
	"propdesk/internal/push"
	"propdesk/internal/rbac"
	"propdesk/internal/summary"
	"propdesk/internal/uploads"
	"propdesk/internal/vendors"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Consoles *ConsoleRegistry

	Contacts *contacts.Service
	Owners   *owners.Service
	Vendors  *vendors.Service
	Expenses *expenses.Service
	CallLog  *calllog.Service
	Uploads  *uploads.Service
	Dispatch *dispatch.Service
	Summary  *summary.Service
	Hub      *push.Hub

	// Audit is best-effort; a nil service disables the trail.
	Audit *audit.Service

	// MaxMediaBytes caps recording uploads. Zero means the 100MB default.
	MaxMediaBytes int64
}

// actor extracts the audit actor fields from the request identity. Audit
// writes are best-effort and never surfaced to clients.
func actor(c *gin.Context) (userID, role, ip string) {
	ctx := c.Request.Context()
	userID, _ = auth.UserID(ctx)
	role, _ = auth.Role(ctx)
	return userID, role, c.ClientIP()
}

// Console bundles the per-workspace call surface: one device controller and
// its incoming notifier.
type Console struct {
	Device   *device.Controller
	Notifier *incoming.Notifier
}

// ConsoleRegistry maps workspaces to their consoles.
type ConsoleRegistry struct {
	mu       sync.RWMutex
	consoles map[string]*Console
}

func NewConsoleRegistry() *ConsoleRegistry {
	return &ConsoleRegistry{consoles: make(map[string]*Console)}
}

func (r *ConsoleRegistry) Put(workspaceID string, c *Console) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consoles[workspaceID] = c
}

func (r *ConsoleRegistry) Get(workspaceID string) (*Console, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.consoles[workspaceID]
	return c, ok
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: Credential validation sits in front of this service; this endpoint
// mints tokens for an already-authenticated principal.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

// Refresh exchanges a refresh token for a new pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	role := req.Role
	if role == "" {
		role = rbac.RoleAgent
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID, claims.WorkspaceID, role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- helpers ---

func (h Handlers) console(c *gin.Context) (*Console, string, bool) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return nil, "", false
	}
	if h.Consoles == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "console not configured"})
		return nil, "", false
	}
	console, ok := h.Consoles.Get(workspaceID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no console for workspace"})
		return nil, "", false
	}
	return console, workspaceID, true
}

func workspace(c *gin.Context) (string, bool) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", false
	}
	return workspaceID, true
}
