package main

import (
	"ussd-gateway/internal/auth"
	"ussd-gateway/internal/gateway"
	"ussd-gateway/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, gw *gateway.Handler, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Aggregator callback (public).
	// NOTE: Lock this down to the aggregator's IP range (or a shared
	// secret header) at the edge; the protocol itself carries no auth.
	r.POST("/ussd", gw.Inbound)

	v1 := r.Group("/v1")

	// Token issuance (public).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	v1.POST("/auth/login", h.Login)

	// Ops API (protected): live session inspection and the audit tail.
	ops := v1.Group("/ops")
	ops.Use(authMW)
	{
		ops.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "role": role})
		})

		ops.GET("/sessions", h.ListSessions)
		ops.GET("/sessions/:phone", h.GetSession)
		ops.GET("/audit", h.AuditTail)
	}
}
