package listings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BrowseFilter narrows the public browse query. Zero values mean "no filter".
type BrowseFilter struct {
	State    string
	Category ListingCategory
	MinPrice int64
	MaxPrice int64
	Page     int
	PerPage  int
}

// Repository defines listing data access.
type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Listing, error)
	BrowseVerified(ctx context.Context, filter BrowseFilter) ([]Listing, int64, error)

	AddDocument(ctx context.Context, doc *ListingDocument) error
	GetDocument(ctx context.Context, listingID, docID uuid.UUID) (*ListingDocument, error)
	AddMedia(ctx context.Context, media *ListingMedia) error

	// CompletePrecheck advances pending_ml -> pending_vetting and stamps
	// ml_validated_at. Returns the number of rows updated; zero means the
	// listing is absent or not in pending_ml.
	CompletePrecheck(ctx context.Context, id uuid.UUID, validatedAt time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a Postgres-backed listing repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).
		Preload("Documents").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *gormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Listing, error) {
	var items []Listing
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *gormRepository) BrowseVerified(ctx context.Context, filter BrowseFilter) ([]Listing, int64, error) {
	query := r.db.WithContext(ctx).Model(&Listing{}).Where("status = ?", StatusVerified)
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MinPrice > 0 {
		query = query.Where("price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price <= ?", filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []Listing
	err := query.
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&items).Error
	return items, total, err
}

func (r *gormRepository) AddDocument(ctx context.Context, doc *ListingDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *gormRepository) GetDocument(ctx context.Context, listingID, docID uuid.UUID) (*ListingDocument, error) {
	var doc ListingDocument
	err := r.db.WithContext(ctx).
		First(&doc, "id = ? AND listing_id = ?", docID, listingID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *gormRepository) AddMedia(ctx context.Context, media *ListingMedia) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *gormRepository) CompletePrecheck(ctx context.Context, id uuid.UUID, validatedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND status = ?", id, StatusPendingML).
		Updates(map[string]interface{}{
			"status":          StatusPendingVetting,
			"ml_validated_at": validatedAt,
		})
	return result.RowsAffected, result.Error
}
