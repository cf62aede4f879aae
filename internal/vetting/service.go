package vetting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/apierr"
	"havenhomes/marketplace-backend/internal/listings"
	"havenhomes/marketplace-backend/pkg/export"
	"havenhomes/marketplace-backend/pkg/pdf"
	"havenhomes/marketplace-backend/pkg/storage"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// RawQueueQuery carries the queue request parameters exactly as received, so
// validation can report each offending field.
type RawQueueQuery struct {
	Page     string
	PerPage  string
	Sort     string
	State    string
	Priority string
}

// Notifier is told about review decisions; delivery failures must not fail
// the decision itself.
type Notifier interface {
	DecisionMade(ctx context.Context, ownerID, listingID uuid.UUID, title string, decision Decision, note string)
}

// Service provides the vetting queue and the review transition.
type Service struct {
	repo     Repository
	store    storage.ObjectStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new vetting service. store and notifier may be nil.
func NewService(repo Repository, store storage.ObjectStore, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ParseQueueQuery validates and normalizes a raw queue request.
func ParseQueueQuery(raw RawQueueQuery) (QueueQuery, error) {
	q := QueueQuery{Page: 1, PerPage: defaultPerPage, Sort: SortNewest, State: raw.State}
	var fields []apierr.FieldError

	if raw.Page != "" {
		page, err := strconv.Atoi(raw.Page)
		if err != nil || page < 1 {
			fields = append(fields, apierr.FieldError{Field: "page", Message: "must be a positive integer"})
		} else {
			q.Page = page
		}
	}
	if raw.PerPage != "" {
		perPage, err := strconv.Atoi(raw.PerPage)
		if err != nil || perPage < 1 {
			fields = append(fields, apierr.FieldError{Field: "per_page", Message: "must be a positive integer"})
		} else if perPage > maxPerPage {
			fields = append(fields, apierr.FieldError{Field: "per_page", Message: fmt.Sprintf("must not exceed %d", maxPerPage)})
		} else {
			q.PerPage = perPage
		}
	}
	if raw.Sort != "" {
		if !ValidSortKey(SortKey(raw.Sort)) {
			fields = append(fields, apierr.FieldError{Field: "sort", Message: "must be one of newest, oldest, urgent, location"})
		} else {
			q.Sort = SortKey(raw.Sort)
		}
	}
	if raw.Priority != "" {
		if !ValidUrgency(UrgencyLevel(raw.Priority)) {
			fields = append(fields, apierr.FieldError{Field: "priority", Message: "must be one of low, medium, high, urgent"})
		} else {
			q.Priority = UrgencyLevel(raw.Priority)
		}
	}

	if len(fields) > 0 {
		return QueueQuery{}, apierr.Invalid("queue request is invalid", fields...)
	}
	return q, nil
}

// Queue builds one page of the admin vetting queue with derived fields,
// pagination metadata, summary aggregates and filter facets. All filters,
// including the derived priority tier, are applied before pagination.
func (s *Service) Queue(ctx context.Context, raw RawQueueQuery) (*QueuePage, error) {
	q, err := ParseQueueQuery(raw)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.repo.ListQueue(ctx, q)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	states, err := s.repo.AvailableStates(ctx)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}

	items := s.annotate(rows)

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	}

	page := &QueuePage{
		Data: items,
		Pagination: Pagination{
			Page:       q.Page,
			PerPage:    q.PerPage,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    q.Page < totalPages,
			HasPrev:    q.Page > 1 && total > 0,
		},
		Summary: summarize(items, total),
		Filters: Filters{
			Sort:            q.Sort,
			State:           q.State,
			Priority:        q.Priority,
			AvailableStates: states,
		},
	}
	return page, nil
}

// annotate computes the derived review fields for each queue row.
func (s *Service) annotate(rows []QueueRow) []QueueItem {
	now := s.now()
	items := make([]QueueItem, 0, len(rows))
	for _, row := range rows {
		waitingSince := row.CreatedAt
		if row.MLValidatedAt != nil {
			waitingSince = *row.MLValidatedAt
		}
		items = append(items, QueueItem{
			QueueRow:             row,
			DaysWaiting:          int(now.Sub(waitingSince).Hours() / 24),
			HighValue:            IsHighValue(row.Price),
			HasCompleteDocuments: HasCompleteDocuments(row.DocumentCount),
			UrgencyLevel:         UrgencyFor(row.Price, row.DocumentCount),
		})
	}
	return items
}

// summarize aggregates the current page; TotalPending spans the whole
// filtered queue.
func summarize(items []QueueItem, total int64) Summary {
	summary := Summary{TotalPending: total}
	states := make(map[string]struct{})
	waitSum := 0
	for _, item := range items {
		if item.UrgencyLevel == UrgencyUrgent {
			summary.UrgentCount++
		}
		if item.HighValue {
			summary.HighValueCount++
		}
		waitSum += item.DaysWaiting
		states[item.State] = struct{}{}
	}
	if len(items) > 0 {
		summary.AverageWaitDays = float64(waitSum) / float64(len(items))
	}
	summary.StatesRepresented = len(states)
	return summary
}

// Decide applies a terminal review decision to a listing still awaiting
// vetting. The transition is conditional on the current status, so a
// concurrent or repeated decision surfaces as a conflict instead of silently
// overwriting the first outcome.
func (s *Service) Decide(ctx context.Context, listingID, reviewerID uuid.UUID, decision Decision, note string) (*listings.Listing, error) {
	if !ValidDecision(decision) {
		return nil, apierr.Invalid("decision request is invalid",
			apierr.FieldError{Field: "decision", Message: "must be verified or rejected"})
	}

	rows, err := s.repo.Transition(ctx, listingID, decision, reviewerID, s.now())
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	if rows == 0 {
		if _, err := s.repo.GetListing(ctx, listingID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.New(apierr.KindNotFound, "listing not found")
			}
			return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
		}
		return nil, apierr.New(apierr.KindConflict, "listing is not awaiting vetting")
	}

	event := &VettingEvent{
		ID:         uuid.New(),
		ListingID:  listingID,
		Decision:   decision,
		Note:       note,
		ReviewerID: reviewerID,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		// The decision itself stands; losing the audit row is logged loudly.
		s.logger.Error("Failed to record vetting event",
			zap.String("listing_id", listingID.String()), zap.Error(err))
	}

	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}

	s.logger.Info("Vetting decision applied",
		zap.String("listing_id", listingID.String()),
		zap.String("decision", string(decision)),
		zap.String("reviewer_id", reviewerID.String()))

	if decision == DecisionRejected {
		s.purgeFiles(ctx, listing)
	}

	if s.notifier != nil {
		s.notifier.DecisionMade(ctx, listing.OwnerID, listing.ID, listing.Title, decision, note)
	}
	return listing, nil
}

// purgeFiles removes a rejected listing's stored files from the bucket. The
// database records stay for the audit trail; only the blobs go.
func (s *Service) purgeFiles(ctx context.Context, listing *listings.Listing) {
	if s.store == nil {
		return
	}
	keys := make([]string, 0, len(listing.Documents)+len(listing.Media))
	for _, doc := range listing.Documents {
		keys = append(keys, doc.ObjectKey)
	}
	for _, media := range listing.Media {
		keys = append(keys, media.ObjectKey)
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to delete rejected listing file",
				zap.String("listing_id", listing.ID.String()),
				zap.String("object_key", key), zap.Error(err))
		}
	}
}

// ExportQueue renders the whole filtered queue (ignoring pagination) as a
// spreadsheet.
func (s *Service) ExportQueue(ctx context.Context, raw RawQueueQuery) (*bytes.Buffer, error) {
	raw.Page, raw.PerPage = "", ""
	q, err := ParseQueueQuery(raw)
	if err != nil {
		return nil, err
	}
	q.PerPage = 0

	rows, _, err := s.repo.ListQueue(ctx, q)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	items := s.annotate(rows)

	headers := []string{
		"Listing ID", "Title", "Category", "State", "City", "Owner", "Price (NGN)",
		"Documents", "Media", "Days Waiting", "Urgency", "High Value", "Validated At",
	}
	sheetRows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		validatedAt := ""
		if item.MLValidatedAt != nil {
			validatedAt = item.MLValidatedAt.Format(time.RFC3339)
		}
		sheetRows = append(sheetRows, []interface{}{
			item.ID.String(), item.Title, string(item.Category), item.State, item.City,
			item.OwnerName, item.Price, item.DocumentCount, item.MediaCount,
			item.DaysWaiting, string(item.UrgencyLevel), item.HighValue, validatedAt,
		})
	}

	buf, err := export.BuildWorkbook("Vetting Queue", headers, sheetRows)
	if err != nil {
		return nil, fmt.Errorf("failed to export queue: %w", err)
	}
	return buf, nil
}

// Certificate renders the verification certificate PDF for a verified listing.
func (s *Service) Certificate(ctx context.Context, listingID uuid.UUID) ([]byte, error) {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(apierr.KindNotFound, "listing not found")
		}
		return nil, apierr.Wrap(apierr.KindUnavailable, "listing store unavailable", err)
	}
	if listing.Status != listings.StatusVerified {
		return nil, apierr.New(apierr.KindConflict, "listing is not verified")
	}

	ownerName, err := s.repo.GetOwnerName(ctx, listing.OwnerID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "account store unavailable", err)
	}

	verifiedAt := s.now()
	if listing.ReviewedAt != nil {
		verifiedAt = *listing.ReviewedAt
	}
	return pdf.RenderCertificate(pdf.Certificate{
		ListingID:  listing.ID.String(),
		Title:      listing.Title,
		OwnerName:  ownerName,
		Address:    listing.Address,
		City:       listing.City,
		State:      listing.State,
		Category:   string(listing.Category),
		VerifiedAt: verifiedAt,
	})
}
