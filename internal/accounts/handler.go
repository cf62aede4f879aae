package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"havenhomes/marketplace-backend/internal/apierr"
)

// Handler handles HTTP requests for account operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the public auth routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/request-password-reset", h.requestPasswordReset)
		auth.POST("/reset-password", h.resetPassword)
	}
}

// RegisterAuthedRoutes registers routes that require a session.
func (h *Handler) RegisterAuthedRoutes(router *gin.RouterGroup) {
	router.GET("/auth/me", h.me)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("request body is not valid JSON"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if apierr.KindOf(err) == apierr.KindInternal {
			h.logger.Error("Failed to register account", zap.Error(err))
		}
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("request body is not valid JSON"))
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) requestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("request body is not valid JSON"))
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("Failed to issue password reset", zap.Error(err))
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the account exists, a reset token has been issued"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("request body is not valid JSON"))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
