package main

import (
	"net/http"

	"propdesk/internal/httpapi"
	"propdesk/internal/rbac"
	"propdesk/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, webhooks telephony.WebhookHandler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: protect with Twilio signature validation in production.
	r.POST("/webhooks/twilio/voice", webhooks.HandleVoice)
	r.POST("/webhooks/twilio/status", webhooks.HandleStatus)

	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireWorkspace())

	// Push events stream for the console UI.
	v1.GET("/events", h.Events)

	// Call surface: any phone-facing role.
	calls := v1.Group("/calls")
	calls.Use(rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent))
	{
		calls.POST("", h.PlaceCall)
		calls.POST("/end", h.EndCall)
		calls.POST("/digits", h.SendDigits)
		calls.GET("/device", h.DeviceState)

		calls.POST("/incoming/accept", h.AcceptIncoming)
		calls.POST("/incoming/decline", h.DeclineIncoming)
		calls.POST("/incoming/dismiss", h.DismissIncoming)
	}

	// Recordings and history.
	v1.POST("/recordings", rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent), h.UploadRecording)
	v1.GET("/call-log", h.ListCallLog)
	v1.POST("/call-log/:id/summary", h.SummarizeCall)

	// Outbound messaging.
	dispatchGroup := v1.Group("/dispatch")
	dispatchGroup.Use(rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent))
	{
		dispatchGroup.POST("/sms", h.SendSMS)
		dispatchGroup.POST("/voicemail", h.DropVoicemail)
	}

	// Directory.
	v1.GET("/contacts", h.ListContacts)
	v1.GET("/contacts/resolve", h.ResolveContact)

	ownersGroup := v1.Group("/owners")
	{
		ownersGroup.GET("", h.ListOwners)
		ownersGroup.GET("/:id", h.GetOwner)
		ownersGroup.POST("", rbac.RequireAnyRole(rbac.RoleManager), h.CreateOwner)
		ownersGroup.PUT("/:id", rbac.RequireAnyRole(rbac.RoleManager), h.UpdateOwner)
		ownersGroup.DELETE("/:id", rbac.RequireAnyRole(rbac.RoleManager), h.DeleteOwner)
	}

	vendorsGroup := v1.Group("/vendors")
	{
		vendorsGroup.GET("", h.ListVendors)
		vendorsGroup.GET("/:id", h.GetVendor)
		vendorsGroup.POST("", rbac.RequireAnyRole(rbac.RoleManager), h.CreateVendor)
		vendorsGroup.PUT("/:id", rbac.RequireAnyRole(rbac.RoleManager), h.UpdateVendor)
		vendorsGroup.PUT("/:id/active", rbac.RequireAnyRole(rbac.RoleManager), h.SetVendorActive)
		vendorsGroup.DELETE("/:id", rbac.RequireAnyRole(rbac.RoleManager), h.DeleteVendor)
	}

	// Expense approvals: managers only past the draft stage.
	expensesGroup := v1.Group("/expenses")
	{
		expensesGroup.GET("", h.ListExpenses)
		expensesGroup.GET("/:id", h.GetExpense)
		expensesGroup.POST("", h.CreateExpense)
		expensesGroup.POST("/:id/submit", h.TransitionExpense("submit"))
		expensesGroup.POST("/:id/approve", rbac.RequireAnyRole(rbac.RoleManager), h.TransitionExpense("approve"))
		expensesGroup.POST("/:id/pay", rbac.RequireAnyRole(rbac.RoleManager), h.TransitionExpense("pay"))
		expensesGroup.POST("/:id/void", rbac.RequireAnyRole(rbac.RoleManager), h.TransitionExpense("void"))
	}
}
