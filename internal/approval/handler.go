package approval

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"groupware/approval-portal/approval-portal-backend/internal/auth"
	"groupware/approval-portal/approval-portal-backend/internal/templates"
)

// Handler exposes the workflow engine over HTTP. It shapes payloads and maps
// errors; all decision logic stays in the engine.
type Handler struct {
	engine *Engine
	logger *zap.Logger
}

// NewHandler creates an approval handler.
func NewHandler(engine *Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// RegisterRoutes registers approval routes. The group must already carry the
// auth middleware.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	sign := router.Group("/sign")
	{
		sign.POST("/documents", h.submit)
		sign.POST("/approve", h.approve)
		sign.POST("/drafts", h.saveDraft)
		sign.POST("/drafts/take", h.takeDraft)
	}
}

// SubmitRequest is the payload for submitting a document for approval.
type SubmitRequest struct {
	Kind         templates.Kind  `json:"kind" binding:"required"`
	ApproverIDs  []uuid.UUID     `json:"approver_ids" binding:"required"`
	ReferenceIDs []uuid.UUID     `json:"reference_ids"`
	Payload      json.RawMessage `json:"payload" binding:"required"`
}

func (h *Handler) submit(c *gin.Context) {
	writerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := templates.Validate(req.Kind, req.Payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.engine.Submit(c.Request.Context(), writerID, req.Kind, req.ApproverIDs, req.ReferenceIDs, req.Payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document_id": id})
}

// ApproveRequest is the payload for an approver decision.
type ApproveRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Approved   *bool  `json:"approved" binding:"required"`
}

func (h *Handler) approve(c *gin.Context) {
	actorID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.Approve(c.Request.Context(), actorID, req.DocumentID, *req.Approved); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": req.DocumentID})
}

// DraftRequest is the payload for saving a draft.
type DraftRequest struct {
	Kind    templates.Kind  `json:"kind" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

func (h *Handler) saveDraft(c *gin.Context) {
	writerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown template kind"})
		return
	}

	id, err := h.engine.SaveDraft(c.Request.Context(), writerID, req.Kind, req.Payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document_id": id})
}

// takeDraft returns and removes the caller's draft. POST because it mutates.
func (h *Handler) takeDraft(c *gin.Context) {
	writerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	doc, err := h.engine.TakeDraft(c.Request.Context(), writerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the current approver"})
	case errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "document is not approvable"})
	case errors.Is(err, ErrNoApprovers):
		c.JSON(http.StatusBadRequest, gin.H{"error": "approver chain must not be empty"})
	default:
		h.logger.Error("workflow operation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
	}
}
