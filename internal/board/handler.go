package board

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"groupware/approval-portal/approval-portal-backend/internal/approval"
	"groupware/approval-portal/approval-portal-backend/internal/auth"
)

// Handler exposes board views over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a board handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers board routes. The group must already carry the
// auth middleware.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	board := router.Group("/board")
	{
		board.GET("/inbox", h.inbox)
		board.GET("/references", h.references)
		board.GET("/documents/:id", h.detail)
	}
}

func (h *Handler) inbox(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	entries, err := h.service.Inbox(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("inbox query failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": entries})
}

func (h *Handler) references(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	entries, err := h.service.References(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("references query failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"references": entries})
}

func (h *Handler) detail(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, approval.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("detail query failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, detail)
}
