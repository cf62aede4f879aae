package vetting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/listings"
)

// docCountSQL counts attached documents inline so the urgency tier can be
// evaluated in the WHERE clause, before pagination.
const docCountSQL = `(SELECT COUNT(*) FROM listing_documents d WHERE d.listing_id = listings.id)`

const mediaCountSQL = `(SELECT COUNT(*) FROM listing_media m WHERE m.listing_id = listings.id)`

// urgencySQL is the SQL rendition of UrgencyFor, built from the same
// constants so the two cannot drift apart.
var urgencySQL = fmt.Sprintf(`CASE
	WHEN listings.price > %d THEN '%s'
	WHEN listings.price > %d THEN '%s'
	WHEN `+docCountSQL+` >= %d THEN '%s'
	ELSE '%s'
END`, urgentPrice, UrgencyUrgent, highValuePrice, UrgencyHigh, mediumDocuments, UrgencyMedium, UrgencyLow)

// Repository defines vetting data access.
type Repository interface {
	// ListQueue returns one page of the filtered queue plus the total count
	// over the whole filtered queue. PerPage <= 0 disables pagination.
	ListQueue(ctx context.Context, q QueueQuery) ([]QueueRow, int64, error)

	// AvailableStates lists the distinct states with listings awaiting vetting.
	AvailableStates(ctx context.Context) ([]string, error)

	// Transition applies a decision only if the listing is still awaiting
	// vetting. Returns the number of rows updated; zero means the listing is
	// absent or no longer in pending_vetting.
	Transition(ctx context.Context, id uuid.UUID, decision Decision, reviewerID uuid.UUID, at time.Time) (int64, error)

	GetListing(ctx context.Context, id uuid.UUID) (*listings.Listing, error)
	GetOwnerName(ctx context.Context, ownerID uuid.UUID) (string, error)
	CreateEvent(ctx context.Context, event *VettingEvent) error

	// QueueStats reports the queue depth and how many entries were validated
	// before the given cutoff.
	QueueStats(ctx context.Context, overdueBefore time.Time) (depth, overdue int64, err error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a Postgres-backed vetting repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) filtered(ctx context.Context, q QueueQuery) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&listings.Listing{}).
		Where("listings.status = ?", listings.StatusPendingVetting)
	if q.State != "" {
		query = query.Where("listings.state = ?", q.State)
	}
	if q.Priority != "" {
		query = query.Where(urgencySQL+" = ?", string(q.Priority))
	}
	return query
}

// pageQuery builds the row query for one queue page: the filtered base,
// owner join, inline counts, sort order and pagination window.
func (r *gormRepository) pageQuery(ctx context.Context, q QueueQuery) *gorm.DB {
	query := r.filtered(ctx, q).
		Select(`listings.id, listings.owner_id, listings.title, listings.category,
			listings.address, listings.city, listings.state, listings.price,
			listings.price_period, listings.status, listings.ml_validated_at,
			listings.created_at,
			` + docCountSQL + ` AS document_count,
			` + mediaCountSQL + ` AS media_count,
			users.full_name AS owner_name, users.phone AS owner_phone`).
		Joins("JOIN users ON users.id = listings.owner_id")

	switch q.Sort {
	case SortOldest:
		query = query.Order("listings.created_at ASC")
	case SortUrgent:
		// Oldest pre-check first, i.e. most overdue at the top.
		query = query.Order("COALESCE(listings.ml_validated_at, listings.created_at) ASC")
	case SortLocation:
		query = query.Order("listings.state ASC, listings.city ASC")
	default:
		query = query.Order("listings.created_at DESC")
	}

	if q.PerPage > 0 {
		query = query.Offset((q.Page - 1) * q.PerPage).Limit(q.PerPage)
	}
	return query
}

func (r *gormRepository) ListQueue(ctx context.Context, q QueueQuery) ([]QueueRow, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []QueueRow
	if err := r.pageQuery(ctx, q).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *gormRepository) AvailableStates(ctx context.Context) ([]string, error) {
	var states []string
	err := r.db.WithContext(ctx).Model(&listings.Listing{}).
		Where("status = ?", listings.StatusPendingVetting).
		Distinct("state").
		Order("state ASC").
		Pluck("state", &states).Error
	return states, err
}

func (r *gormRepository) Transition(ctx context.Context, id uuid.UUID, decision Decision, reviewerID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&listings.Listing{}).
		Where("id = ? AND status = ?", id, listings.StatusPendingVetting).
		Updates(map[string]interface{}{
			"status":      decision.Status(),
			"reviewed_at": at,
			"reviewed_by": reviewerID,
		})
	return result.RowsAffected, result.Error
}

func (r *gormRepository) GetListing(ctx context.Context, id uuid.UUID) (*listings.Listing, error) {
	var listing listings.Listing
	err := r.db.WithContext(ctx).
		Preload("Documents").
		Preload("Media").
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *gormRepository) GetOwnerName(ctx context.Context, ownerID uuid.UUID) (string, error) {
	var name string
	err := r.db.WithContext(ctx).Table("users").
		Where("id = ?", ownerID).
		Pluck("full_name", &name).Error
	return name, err
}

func (r *gormRepository) CreateEvent(ctx context.Context, event *VettingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *gormRepository) QueueStats(ctx context.Context, overdueBefore time.Time) (int64, int64, error) {
	var depth int64
	err := r.db.WithContext(ctx).Model(&listings.Listing{}).
		Where("status = ?", listings.StatusPendingVetting).
		Count(&depth).Error
	if err != nil {
		return 0, 0, err
	}

	var overdue int64
	err = r.db.WithContext(ctx).Model(&listings.Listing{}).
		Where("status = ? AND COALESCE(ml_validated_at, created_at) < ?",
			listings.StatusPendingVetting, overdueBefore).
		Count(&overdue).Error
	return depth, overdue, err
}
