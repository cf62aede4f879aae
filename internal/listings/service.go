package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/accounts"
	"havenhomes/marketplace-backend/internal/apierr"
	"havenhomes/marketplace-backend/pkg/storage"
)

const (
	defaultBrowsePerPage = 20
	maxBrowsePerPage     = 100
)

// SubmitRequest is the owner-facing listing submission payload.
type SubmitRequest struct {
	Title       string          `json:"title"`
	Category    ListingCategory `json:"category"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	Country     string          `json:"country"`
	Price       int64           `json:"price"`
	PricePeriod PricePeriod     `json:"price_period"`
	Latitude    *float64        `json:"latitude"`
	Longitude   *float64        `json:"longitude"`
	Amenities   []string        `json:"amenities"`
}

// BrowsePage is a page of publicly visible listings.
type BrowsePage struct {
	Data       []Listing `json:"data"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"total_pages"`
}

// Service provides listing business logic.
type Service struct {
	repo       Repository
	store      storage.ObjectStore
	logger     *zap.Logger
	presignTTL time.Duration
	now        func() time.Time
}

// NewService creates a new listings service.
func NewService(repo Repository, store storage.ObjectStore, logger *zap.Logger, presignTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		store:      store,
		logger:     logger,
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// Submit creates a new listing for the owner. It enters the workflow in
// pending_ml, awaiting the automated pre-check.
func (s *Service) Submit(ctx context.Context, ownerID uuid.UUID, req SubmitRequest) (*Listing, error) {
	var fields []apierr.FieldError
	if strings.TrimSpace(req.Title) == "" {
		fields = append(fields, apierr.FieldError{Field: "title", Message: "is required"})
	}
	if !ValidCategory(req.Category) {
		fields = append(fields, apierr.FieldError{Field: "category", Message: "must be one of apartment, house, land, commercial, short_let"})
	}
	if strings.TrimSpace(req.Address) == "" {
		fields = append(fields, apierr.FieldError{Field: "address", Message: "is required"})
	}
	if strings.TrimSpace(req.State) == "" {
		fields = append(fields, apierr.FieldError{Field: "state", Message: "is required"})
	}
	if req.Price <= 0 {
		fields = append(fields, apierr.FieldError{Field: "price", Message: "must be a positive amount in naira"})
	}
	if req.PricePeriod == "" {
		req.PricePeriod = PriceTotal
	}
	if !ValidPricePeriod(req.PricePeriod) {
		fields = append(fields, apierr.FieldError{Field: "price_period", Message: "must be one of total, per_year, per_month"})
	}
	if len(fields) > 0 {
		return nil, apierr.Invalid("listing submission is invalid", fields...)
	}

	listing := &Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Category:    req.Category,
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		State:       strings.TrimSpace(req.State),
		Country:     req.Country,
		Price:       req.Price,
		PricePeriod: req.PricePeriod,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Amenities:   req.Amenities,
		Status:      StatusPendingML,
	}
	if listing.Country == "" {
		listing.Country = "Nigeria"
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "failed to create listing", err)
	}

	s.logger.Info("Listing submitted",
		zap.String("listing_id", listing.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("state", listing.State))
	return listing, nil
}

// Get loads a listing. Listings that are not yet verified are visible only to
// their owner and to administrators.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID, callerType accounts.UserType) (*Listing, error) {
	listing, err := s.loadListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != StatusVerified && listing.OwnerID != callerID && callerType != accounts.UserTypeAdmin {
		return nil, apierr.New(apierr.KindNotFound, "listing not found")
	}
	return listing, nil
}

// Browse returns a page of verified listings for the public marketplace.
func (s *Service) Browse(ctx context.Context, filter BrowseFilter) (*BrowsePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultBrowsePerPage
	}
	if filter.PerPage > maxBrowsePerPage {
		filter.PerPage = maxBrowsePerPage
	}
	if filter.Category != "" && !ValidCategory(filter.Category) {
		return nil, apierr.Invalid("browse request is invalid",
			apierr.FieldError{Field: "category", Message: "unknown category"})
	}

	items, total, err := s.repo.BrowseVerified(ctx, filter)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}

	totalPages := int((total + int64(filter.PerPage) - 1) / int64(filter.PerPage))
	return &BrowsePage{
		Data:       items,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// MyListings returns all listings owned by the caller.
func (s *Service) MyListings(ctx context.Context, ownerID uuid.UUID) ([]Listing, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	return items, nil
}

// AttachDocument stores a supporting document file and records it against the
// listing. Only the owner may attach documents.
func (s *Service) AttachDocument(ctx context.Context, listingID, callerID uuid.UUID, docType DocumentType, fileName string, size int64, content io.Reader) (*ListingDocument, error) {
	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != callerID {
		return nil, apierr.New(apierr.KindForbidden, "only the listing owner may attach documents")
	}
	if fileName == "" {
		return nil, apierr.Invalid("document upload is invalid",
			apierr.FieldError{Field: "file", Message: "is required"})
	}
	if docType == "" {
		docType = DocTypeOther
	}

	doc := &ListingDocument{
		ID:        uuid.New(),
		ListingID: listingID,
		DocType:   docType,
		FileName:  fileName,
		ObjectKey: fmt.Sprintf("listings/%s/documents/%s/%s", listingID, uuid.New(), fileName),
		SizeBytes: size,
	}
	if err := s.store.Upload(ctx, doc.ObjectKey, content, "application/octet-stream"); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "failed to store document file", err)
	}
	if err := s.repo.AddDocument(ctx, doc); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "failed to record document", err)
	}

	s.logger.Info("Document attached",
		zap.String("listing_id", listingID.String()),
		zap.String("doc_type", string(docType)))
	return doc, nil
}

// AttachMedia stores a media file and records it against the listing.
func (s *Service) AttachMedia(ctx context.Context, listingID, callerID uuid.UUID, mediaType, fileName string, position int, content io.Reader) (*ListingMedia, error) {
	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != callerID {
		return nil, apierr.New(apierr.KindForbidden, "only the listing owner may attach media")
	}
	if fileName == "" {
		return nil, apierr.Invalid("media upload is invalid",
			apierr.FieldError{Field: "file", Message: "is required"})
	}
	if mediaType == "" {
		mediaType = "photo"
	}

	media := &ListingMedia{
		ID:        uuid.New(),
		ListingID: listingID,
		MediaType: mediaType,
		ObjectKey: fmt.Sprintf("listings/%s/media/%s/%s", listingID, uuid.New(), fileName),
		Position:  position,
	}
	if err := s.store.Upload(ctx, media.ObjectKey, content, "application/octet-stream"); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "failed to store media file", err)
	}
	if err := s.repo.AddMedia(ctx, media); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "failed to record media", err)
	}
	return media, nil
}

// DocumentURL returns a presigned download URL for a listing document,
// available to the owner and to administrators.
func (s *Service) DocumentURL(ctx context.Context, listingID, docID, callerID uuid.UUID, callerType accounts.UserType) (string, error) {
	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return "", err
	}
	if listing.OwnerID != callerID && callerType != accounts.UserTypeAdmin {
		return "", apierr.New(apierr.KindForbidden, "not allowed to access this document")
	}

	doc, err := s.repo.GetDocument(ctx, listingID, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierr.New(apierr.KindNotFound, "document not found")
		}
		return "", apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}

	url, err := s.store.PresignDownload(ctx, doc.ObjectKey, s.presignTTL)
	if err != nil {
		return "", apierr.Wrap(apierr.KindUnavailable, "failed to presign document", err)
	}
	return url, nil
}

// CompletePrecheck is the automated pre-check callback: it stamps the
// validation timestamp and advances the listing into the vetting queue.
func (s *Service) CompletePrecheck(ctx context.Context, id uuid.UUID) (*Listing, error) {
	rows, err := s.repo.CompletePrecheck(ctx, id, s.now())
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	if rows == 0 {
		if _, err := s.loadListing(ctx, id); err != nil {
			return nil, err
		}
		return nil, apierr.New(apierr.KindConflict, "listing is not awaiting pre-check")
	}

	listing, err := s.loadListing(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Pre-check completed, listing queued for vetting",
		zap.String("listing_id", id.String()))
	return listing, nil
}

func (s *Service) loadListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(apierr.KindNotFound, "listing not found")
		}
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	return listing, nil
}
