package httpapi

import (
	"context"
	"errors"
	"net/http"

	"propdesk/internal/contacts"
	"propdesk/internal/dispatch"
	"propdesk/internal/expenses"
	"propdesk/internal/owners"
	"propdesk/internal/vendors"

	"github.com/gin-gonic/gin"
)

// crudError maps the shared service sentinel errors onto HTTP statuses.
func crudError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, owners.ErrNotFound),
		errors.Is(err, vendors.ErrNotFound),
		errors.Is(err, expenses.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, expenses.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// --- Owners ---

func (h Handlers) CreateOwner(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req owners.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	owner, err := h.Owners.Create(c.Request.Context(), workspaceID, req)
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"owner": owner})
}

func (h Handlers) GetOwner(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	owner, err := h.Owners.Get(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner})
}

func (h Handlers) ListOwners(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	list, err := h.Owners.List(c.Request.Context(), workspaceID,
		intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "owner lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"owners": list})
}

func (h Handlers) UpdateOwner(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req owners.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	owner, err := h.Owners.Update(c.Request.Context(), workspaceID, c.Param("id"), req)
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner})
}

func (h Handlers) DeleteOwner(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	if err := h.Owners.Delete(c.Request.Context(), workspaceID, c.Param("id")); err != nil {
		crudError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Vendors ---

func (h Handlers) CreateVendor(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req vendors.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	vendor, err := h.Vendors.Create(c.Request.Context(), workspaceID, req)
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vendor": vendor})
}

func (h Handlers) GetVendor(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	vendor, err := h.Vendors.Get(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

func (h Handlers) ListVendors(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	list, err := h.Vendors.List(c.Request.Context(), workspaceID,
		vendors.Trade(c.Query("trade")), c.Query("active") == "true",
		intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": list})
}

func (h Handlers) UpdateVendor(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req vendors.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	vendor, err := h.Vendors.Update(c.Request.Context(), workspaceID, c.Param("id"), req)
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

type vendorActiveRequest struct {
	Active bool `json:"active"`
}

func (h Handlers) SetVendorActive(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req vendorActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	vendor, err := h.Vendors.SetActive(c.Request.Context(), workspaceID, c.Param("id"), req.Active)
	if err != nil {
		crudError(c, err)
		return
	}
	msg := "vendor deactivated"
	if req.Active {
		msg = "vendor reactivated"
	}
	if h.Audit != nil {
		userID, role, ip := actor(c)
		_ = h.Audit.LogDirectoryAction(c.Request.Context(), workspaceID, userID, role, ip, "", vendor.ID, msg)
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

func (h Handlers) DeleteVendor(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	if err := h.Vendors.Delete(c.Request.Context(), workspaceID, c.Param("id")); err != nil {
		crudError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Expenses ---

func (h Handlers) CreateExpense(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req expenses.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	expense, err := h.Expenses.Create(c.Request.Context(), workspaceID, req)
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

func (h Handlers) GetExpense(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	expense, err := h.Expenses.Get(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

func (h Handlers) ListExpenses(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	list, err := h.Expenses.List(c.Request.Context(), workspaceID,
		expenses.Status(c.Query("status")), c.Query("vendor_id"),
		intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		crudError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": list})
}

// TransitionExpense moves an expense through its approval lifecycle. The
// action comes from the URL so each step gets its own audit-friendly route.
func (h Handlers) TransitionExpense(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, ok := workspace(c)
		if !ok {
			return
		}
		var (
			expense expenses.Expense
			err     error
		)
		ctx, id := c.Request.Context(), c.Param("id")
		switch action {
		case "submit":
			expense, err = h.Expenses.Submit(ctx, workspaceID, id)
		case "approve":
			expense, err = h.Expenses.Approve(ctx, workspaceID, id)
		case "pay":
			expense, err = h.Expenses.MarkPaid(ctx, workspaceID, id)
		case "void":
			expense, err = h.Expenses.Void(ctx, workspaceID, id)
		default:
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown action"})
			return
		}
		if err != nil {
			crudError(c, err)
			return
		}
		if h.Audit != nil {
			userID, role, ip := actor(c)
			_ = h.Audit.LogExpenseAction(c.Request.Context(), workspaceID, userID, role, ip, expense.ID, action)
		}
		c.JSON(http.StatusOK, gin.H{"expense": expense})
	}
}

// --- Contacts ---

func (h Handlers) ListContacts(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	list, err := h.Contacts.List(c.Request.Context(), workspaceID,
		contacts.ContactType(c.Query("type")),
		intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": list})
}

func (h Handlers) ResolveContact(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}
	target, err := h.Contacts.Resolve(c.Request.Context(), workspaceID, query)
	if err != nil {
		switch {
		case errors.Is(err, contacts.ErrContactNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no match"})
		case errors.Is(err, contacts.ErrAmbiguousQuery):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "multiple matches, be more specific"})
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": target})
}

// --- Dispatch ---

type dispatchRequest struct {
	Recipient string `json:"recipient"`
	Payload   string `json:"payload"`
}

func (h Handlers) SendSMS(c *gin.Context) {
	h.dispatchWith(c, "sms", h.Dispatch.SendSMS)
}

func (h Handlers) DropVoicemail(c *gin.Context) {
	h.dispatchWith(c, "voicemail", h.Dispatch.DropVoicemail)
}

func (h Handlers) dispatchWith(c *gin.Context, kind string, send func(ctx context.Context, req dispatch.Request) (dispatch.Result, error)) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := send(c.Request.Context(), dispatch.Request{
		WorkspaceID: workspaceID,
		Recipient:   req.Recipient,
		Payload:     req.Payload,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrSendFailed) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "provider rejected the message"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.Audit != nil {
		userID, role, ip := actor(c)
		_ = h.Audit.LogDispatch(c.Request.Context(), workspaceID, userID, role, ip, kind, req.Recipient)
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
