package handler

import (
	"net/http"
	"strconv"

	"imobportal_backend/internal/health/service"
	"imobportal_backend/internal/health/transport"
	"imobportal_backend/platform/httpkit"
	"imobportal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	roleAdmin   = "admin"
	roleManager = "manager"
)

// Handler handles HTTP requests for the user health engine
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new health engine handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the health engine routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:id/snapshot", h.GetSnapshot)
	rg.PUT("/users/:id/automation-flags", h.SaveAutoFlags)
	rg.PUT("/users/:id/suspension", h.SaveSuspension)
	rg.PUT("/users/:id/checkpoint", h.SaveCheckpoint)
	rg.POST("/users/:id/checkpoint/run", h.RunCheckpoint)
	rg.GET("/users/:id/audit", h.ListAudit)
	rg.GET("/benchmark", h.GetBenchmark)
}

// targetUser resolves the user the request operates on. Brokers may only
// touch their own state; admins and managers may address any user.
func targetUser(c *gin.Context, identity httpkit.Identity) (string, bool) {
	userID := c.Param("id")
	if userID == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return "", false
	}
	if userID != identity.UserID() && !identity.HasRole(roleAdmin) && !identity.HasRole(roleManager) {
		httpkit.Error(c, http.StatusForbidden, "cannot manage another user's automations", nil)
		return "", false
	}
	return userID, true
}

// actor returns the acting user's ID as an audit-trail pointer. Self-service
// actions carry no actor; only actions on someone else's state do.
func actor(identity httpkit.Identity, targetUserID string) *string {
	if identity.UserID() == targetUserID {
		return nil
	}
	id := identity.UserID()
	return &id
}

// GetSnapshot handles GET /api/v1/health-engine/users/:id/snapshot
func (h *Handler) GetSnapshot(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID, ok := targetUser(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.GetSnapshot(c.Request.Context(), userID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// SaveAutoFlags handles PUT /api/v1/health-engine/users/:id/automation-flags
func (h *Handler) SaveAutoFlags(c *gin.Context) {
	var req transport.SaveAutoFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID, ok := targetUser(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.SaveAutoFlags(c.Request.Context(), userID, req, actor(identity, userID))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// SaveSuspension handles PUT /api/v1/health-engine/users/:id/suspension
func (h *Handler) SaveSuspension(c *gin.Context) {
	var req transport.SaveSuspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID, ok := targetUser(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.SaveSuspension(c.Request.Context(), userID, req, actor(identity, userID))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// SaveCheckpoint handles PUT /api/v1/health-engine/users/:id/checkpoint
func (h *Handler) SaveCheckpoint(c *gin.Context) {
	var req transport.SaveCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID, ok := targetUser(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.SaveCheckpointSchedule(c.Request.Context(), userID, req, actor(identity, userID))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// RunCheckpoint handles POST /api/v1/health-engine/users/:id/checkpoint/run
func (h *Handler) RunCheckpoint(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID, ok := targetUser(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.RunCheckpointNow(c.Request.Context(), userID, actor(identity, userID))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ListAudit handles GET /api/v1/health-engine/users/:id/audit
func (h *Handler) ListAudit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID, ok := targetUser(c, identity)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		limit = parsed
	}

	result, err := h.svc.ListAudit(c.Request.Context(), userID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"events": result})
}

// GetBenchmark handles GET /api/v1/health-engine/benchmark
func (h *Handler) GetBenchmark(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.HouseBenchmark(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
