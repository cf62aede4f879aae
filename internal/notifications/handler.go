package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"havenhomes/marketplace-backend/internal/accounts"
	"havenhomes/marketplace-backend/internal/apierr"
)

// Handler exposes the in-app notification endpoints and the admin feed.
type Handler struct {
	service *Service
	hub     *Hub
	logger  *zap.Logger
}

// NewHandler creates a new notifications handler.
func NewHandler(service *Service, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{service: service, hub: hub, logger: logger}
}

// RegisterRoutes mounts the per-user notification endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/my/notifications", h.list)
	rg.POST("/my/notifications/:id/read", h.markRead)
}

// RegisterAdminRoutes mounts the live activity feed on an admin-guarded group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed", h.feed)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.service.ListForUser(c.Request.Context(), accounts.CurrentUserID(c), limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *Handler) markRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("request is invalid",
			apierr.FieldError{Field: "id", Message: "must be a valid notification id"}))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), accounts.CurrentUserID(c), notificationID); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) feed(c *gin.Context) {
	if err := h.hub.HandleConnection(c.Writer, c.Request); err != nil {
		h.logger.Warn("Failed to open feed connection", zap.Error(err))
		apierr.Respond(c, apierr.Wrap(apierr.KindInternal, "failed to open feed", err))
	}
}
