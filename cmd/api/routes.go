package main

import (
	"database/sql"
	"net/http"
	"time"

	"entity-audit/internal/audit"
	"entity-audit/internal/auth"
	"entity-audit/internal/config"
	"entity-audit/internal/httpapi"
	"entity-audit/internal/rbac"
	"entity-audit/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	cfg      config.Config
	auth     *auth.Manager
	audit    httpapi.AuditService
	engine   *audit.Engine
	registry *prometheus.Registry
	db       *sql.DB
}

// entityRoutes are the HR resources the audit engine observes. Their business
// handlers live in the host application; here they answer 501.
var entityRoutes = []string{
	"/employees",
	"/leaves",
	"/leave-resumptions",
	"/loans",
	"/advances",
	"/deductions",
	"/resignations",
	"/payroll",
	"/users",
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := httpapi.Handlers{Auth: d.auth, Audit: d.audit}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	if !d.cfg.IsProduction() {
		r.POST("/dev/login", h.DevLogin)
	}

	// Every /api route runs through the audit engine; it classifies and skips
	// the ones that are not entity mutations (including /api/audit itself).
	api := r.Group("/api")
	api.Use(auth.RequireAccessToken(d.auth))
	api.Use(d.engine.Middleware())
	{
		api.GET("/me", func(c *gin.Context) {
			actor, _ := auth.ActorFrom(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": actor.ID, "name": actor.Name, "role": actor.Role})
		})

		for _, base := range entityRoutes {
			g := api.Group(base)
			g.POST("", notWired)
			g.PUT("/:id", notWired)
			g.PATCH("/:id", notWired)
			g.DELETE("/:id", notWired)
		}

		// AUDIT routes
		trail := api.Group("/audit")
		trail.Use(rbac.RequireAnyRole(rbac.AuditReaders...))
		{
			trail.GET("", h.ListAudit)
			trail.GET("/recent", h.RecentAudit)
			trail.GET("/stats", h.AuditStats)
			trail.GET("/:id", h.GetAudit)
			trail.DELETE("/:id", rbac.RequireAnyRole(rbac.AuditAdmins...), h.DeleteAudit)
		}
	}
}

func notWired(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "entity handler not wired"})
}
