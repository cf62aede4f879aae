package vetting

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"havenhomes/marketplace-backend/internal/accounts"
	"havenhomes/marketplace-backend/internal/apierr"
)

// Handler exposes the admin vetting endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new vetting handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the vetting endpoints on an admin-guarded group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/vetting", h.queue)
	rg.GET("/vetting/export", h.exportQueue)
	rg.POST("/vetting/:id/decision", h.decide)
	rg.GET("/listings/:id/certificate", h.certificate)
}

func rawQuery(c *gin.Context) RawQueueQuery {
	return RawQueueQuery{
		Page:     c.Query("page"),
		PerPage:  c.Query("per_page"),
		Sort:     c.Query("sort"),
		State:    c.Query("state"),
		Priority: c.Query("priority"),
	}
}

func (h *Handler) queue(c *gin.Context) {
	page, err := h.service.Queue(c.Request.Context(), rawQuery(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type decisionRequest struct {
	Decision Decision `json:"decision" binding:"required"`
	Note     string   `json:"note"`
}

func (h *Handler) decide(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("request is invalid",
			apierr.FieldError{Field: "id", Message: "must be a valid listing id"}))
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("request body is invalid",
			apierr.FieldError{Field: "decision", Message: "is required"}))
		return
	}

	listing, err := h.service.Decide(c.Request.Context(), listingID, accounts.CurrentUserID(c), req.Decision, req.Note)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

func (h *Handler) exportQueue(c *gin.Context) {
	buf, err := h.service.ExportQueue(c.Request.Context(), rawQuery(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	filename := fmt.Sprintf("vetting-queue-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) certificate(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("request is invalid",
			apierr.FieldError{Field: "id", Message: "must be a valid listing id"}))
		return
	}

	data, err := h.service.Certificate(c.Request.Context(), listingID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "certificate-"+listingID.String()+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}
