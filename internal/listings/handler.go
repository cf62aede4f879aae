package listings

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"havenhomes/marketplace-backend/internal/accounts"
	"havenhomes/marketplace-backend/internal/apierr"
)

// Handler handles HTTP requests for listing operations
type Handler struct {
	service        *Service
	logger         *zap.Logger
	precheckSecret string
}

// NewHandler creates a new listings handler
func NewHandler(service *Service, logger *zap.Logger, precheckSecret string) *Handler {
	return &Handler{service: service, logger: logger, precheckSecret: precheckSecret}
}

// RegisterPublicRoutes registers routes available without a session.
func (h *Handler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/listings", h.browse)
	router.POST("/internal/precheck/:id", h.completePrecheck)
}

// RegisterAuthedRoutes registers routes that require a session.
func (h *Handler) RegisterAuthedRoutes(router *gin.RouterGroup) {
	router.POST("/listings", h.submit)
	router.GET("/listings/:id", h.get)
	router.POST("/listings/:id/documents", h.attachDocument)
	router.POST("/listings/:id/media", h.attachMedia)
	router.GET("/listings/:id/documents/:docId/url", h.documentURL)
	router.GET("/my/listings", h.myListings)
}

func (h *Handler) browse(c *gin.Context) {
	filter := BrowseFilter{
		State:    c.Query("state"),
		Category: ListingCategory(c.Query("category")),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	filter.MinPrice, _ = strconv.ParseInt(c.Query("min_price"), 10, 64)
	filter.MaxPrice, _ = strconv.ParseInt(c.Query("max_price"), 10, 64)

	page, err := h.service.Browse(c.Request.Context(), filter)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("request body is not valid JSON"))
		return
	}

	listing, err := h.service.Submit(c.Request.Context(), accounts.CurrentUserID(c), req)
	if err != nil {
		if apierr.KindOf(err) == apierr.KindInternal {
			h.logger.Error("Failed to submit listing", zap.Error(err))
		}
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("invalid listing id"))
		return
	}

	listing, err := h.service.Get(c.Request.Context(), id, accounts.CurrentUserID(c), accounts.CurrentUserType(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) myListings(c *gin.Context) {
	items, err := h.service.MyListings(c.Request.Context(), accounts.CurrentUserID(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

func (h *Handler) attachDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("invalid listing id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierr.Respond(c, apierr.Invalid("document upload is invalid",
			apierr.FieldError{Field: "file", Message: "is required"}))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		apierr.Respond(c, apierr.Invalid("uploaded file could not be read"))
		return
	}
	defer file.Close()

	doc, err := h.service.AttachDocument(c.Request.Context(), id, accounts.CurrentUserID(c),
		DocumentType(c.PostForm("doc_type")), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) attachMedia(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("invalid listing id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierr.Respond(c, apierr.Invalid("media upload is invalid",
			apierr.FieldError{Field: "file", Message: "is required"}))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		apierr.Respond(c, apierr.Invalid("uploaded file could not be read"))
		return
	}
	defer file.Close()

	position, _ := strconv.Atoi(c.PostForm("position"))
	media, err := h.service.AttachMedia(c.Request.Context(), id, accounts.CurrentUserID(c),
		c.PostForm("media_type"), fileHeader.Filename, position, file)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

func (h *Handler) documentURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("invalid listing id"))
		return
	}
	docID, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("invalid document id"))
		return
	}

	url, err := h.service.DocumentURL(c.Request.Context(), id, docID,
		accounts.CurrentUserID(c), accounts.CurrentUserType(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// completePrecheck is called by the upstream pre-check service, authenticated
// with a shared secret rather than a user session.
func (h *Handler) completePrecheck(c *gin.Context) {
	if h.precheckSecret == "" ||
		subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Precheck-Secret")), []byte(h.precheckSecret)) != 1 {
		apierr.Respond(c, apierr.New(apierr.KindUnauthenticated, "invalid pre-check credentials"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Respond(c, apierr.Invalid("invalid listing id"))
		return
	}

	listing, err := h.service.CompletePrecheck(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
