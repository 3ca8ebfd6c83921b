package main

import (
	"database/sql"
	"net/http"
	"time"

	"widget-gateway/internal/auth"
	"widget-gateway/internal/httpapi"
	"widget-gateway/internal/rbac"
	"widget-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager, db *sql.DB) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Call admission and slot lifecycle. Public by design: callers are
	// embedded widgets on third-party pages, authorized by the admission
	// checks themselves, not by tokens.
	calls := v1.Group("/calls")
	{
		calls.POST("/admit", h.AdmitCall)
		calls.POST("/register", h.RegisterCall)
		calls.POST("/:slot_id/finalize", h.FinalizeSlot)
		calls.POST("/:slot_id/release", h.ReleaseSlot)
	}

	// Operator surface: service tokens only.
	ops := v1.Group("/ops")
	ops.Use(auth.RequireServiceToken(authManager))
	{
		ops.POST("/reconcile", rbac.RequireAnyRole(rbac.RoleReconciler), h.RunReconcile)

		widgetsGroup := ops.Group("/widgets")
		widgetsGroup.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			widgetsGroup.POST("", h.CreateWidget)
			widgetsGroup.GET("/:widget_id", h.GetWidget)
			widgetsGroup.PUT("/:widget_id", h.UpdateWidget)
		}
	}
}
