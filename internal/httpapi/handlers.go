package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"entity-audit/internal/audit"
	"entity-audit/internal/auth"
	"entity-audit/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditService is the query surface the handlers need. *audit.Service implements it.
type AuditService interface {
	List(ctx context.Context, f audit.Filters, page, limit int) (audit.ListResult, error)
	Get(ctx context.Context, id string) (audit.Record, error)
	Delete(ctx context.Context, id string) error
	Recent(ctx context.Context) (audit.RecentResult, error)
	Stats(ctx context.Context, days int) (audit.Statistics, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth  *auth.Manager
	Audit AuditService
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// DevLogin issues a token pair for the given identity without checking
// credentials. It is only registered outside production.
func (h Handlers) DevLogin(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Name, req.Role)
	if errors.Is(err, auth.ErrInvalidName) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Audit ---

var validActions = map[audit.Action]bool{
	audit.ActionCreate: true,
	audit.ActionUpdate: true,
	audit.ActionDelete: true,
	audit.ActionRead:   true,
	audit.ActionOther:  true,
}

func (h Handlers) ListAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "page must be an integer"})
		return
	}
	limit, err := queryInt(c, "limit", audit.DefaultPageLimit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}

	f := audit.Filters{
		Module:          audit.Module(strings.ToUpper(strings.TrimSpace(c.Query("module")))),
		Action:          audit.Action(strings.ToUpper(strings.TrimSpace(c.Query("action")))),
		EntityType:      audit.Module(strings.ToUpper(strings.TrimSpace(c.Query("entityType")))),
		ActorID:         strings.TrimSpace(c.Query("actorId")),
		RelatedEntityID: strings.TrimSpace(c.Query("relatedEntityId")),
	}
	if f.Action != "" && !validActions[f.Action] {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	res, err := h.Audit.List(c.Request.Context(), f, page, limit)
	if err != nil {
		h.fail(c, "audit list failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) RecentAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	res, err := h.Audit.Recent(c.Request.Context())
	if err != nil {
		h.fail(c, "audit recent failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) AuditStats(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	days, err := queryInt(c, "days", 0)
	if err != nil || days < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
		return
	}
	st, err := h.Audit.Stats(c.Request.Context(), days)
	if err != nil {
		h.fail(c, "audit stats failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) GetAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	rec, err := h.Audit.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "audit get failed", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteAudit removes one record. RBAC: admin only.
func (h Handlers) DeleteAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	id := c.Param("id")
	if err := h.Audit.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "audit delete failed", err)
		return
	}
	actor, _ := auth.ActorFrom(c.Request.Context())
	logger.FromGin(c).Info("audit record deleted", "id", id, "by", actor.ID)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h Handlers) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, audit.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "audit record not found"})
	case errors.Is(err, audit.ErrStoreUnavailable):
		logger.FromGin(c).Error(msg, "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "audit store unavailable"})
	default:
		logger.FromGin(c).Error(msg, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
