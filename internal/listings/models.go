package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ListingStatus is the workflow state of a listing. Transitions are one-way:
// pending_ml -> pending_vetting -> verified | rejected.
type ListingStatus string

const (
	StatusPendingML      ListingStatus = "pending_ml"
	StatusPendingVetting ListingStatus = "pending_vetting"
	StatusVerified       ListingStatus = "verified"
	StatusRejected       ListingStatus = "rejected"
)

// ListingCategory is the property category.
type ListingCategory string

const (
	CategoryApartment  ListingCategory = "apartment"
	CategoryHouse      ListingCategory = "house"
	CategoryLand       ListingCategory = "land"
	CategoryCommercial ListingCategory = "commercial"
	CategoryShortLet   ListingCategory = "short_let"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c ListingCategory) bool {
	switch c {
	case CategoryApartment, CategoryHouse, CategoryLand, CategoryCommercial, CategoryShortLet:
		return true
	}
	return false
}

// PricePeriod tags how the price is charged.
type PricePeriod string

const (
	PriceTotal    PricePeriod = "total"
	PricePerYear  PricePeriod = "per_year"
	PricePerMonth PricePeriod = "per_month"
)

// ValidPricePeriod reports whether p is a known price period.
func ValidPricePeriod(p PricePeriod) bool {
	return p == PriceTotal || p == PricePerYear || p == PricePerMonth
}

// Listing represents a real-estate unit submitted for marketplace display.
type Listing struct {
	ID       uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OwnerID  uuid.UUID       `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title    string          `json:"title" gorm:"not null"`
	Category ListingCategory `json:"category" gorm:"type:varchar(20);not null;index"`

	Address string `json:"address" gorm:"not null"`
	City    string `json:"city" gorm:"not null"`
	State   string `json:"state" gorm:"not null;index"`
	Country string `json:"country" gorm:"not null;default:'Nigeria'"`

	// Price in naira.
	Price       int64       `json:"price" gorm:"not null;index"`
	PricePeriod PricePeriod `json:"price_period" gorm:"type:varchar(20);not null;default:'total'"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Amenities pq.StringArray `json:"amenities" gorm:"type:text[]"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	Status        ListingStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending_ml';index"`
	MLValidatedAt *time.Time    `json:"ml_validated_at,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	ReviewedBy    *uuid.UUID    `json:"reviewed_by,omitempty" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Documents []ListingDocument `json:"documents,omitempty" gorm:"foreignKey:ListingID"`
	Media     []ListingMedia    `json:"media,omitempty" gorm:"foreignKey:ListingID"`
}

func (Listing) TableName() string { return "listings" }

// DocumentType is the kind of supporting document attached to a listing.
type DocumentType string

const (
	DocTypeDeed        DocumentType = "deed"
	DocTypeSurveyPlan  DocumentType = "survey_plan"
	DocTypeCertificate DocumentType = "certificate_of_occupancy"
	DocTypeUtilityBill DocumentType = "utility_bill"
	DocTypeOther       DocumentType = "other"
)

// ListingDocument is a supporting document record; the file itself lives in
// object storage under ObjectKey.
type ListingDocument struct {
	ID         uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ListingID  uuid.UUID    `json:"listing_id" gorm:"type:uuid;not null;index"`
	DocType    DocumentType `json:"doc_type" gorm:"type:varchar(40);not null"`
	FileName   string       `json:"file_name" gorm:"not null"`
	ObjectKey  string       `json:"-" gorm:"not null"`
	SizeBytes  int64        `json:"size_bytes"`
	UploadedAt time.Time    `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (ListingDocument) TableName() string { return "listing_documents" }

// ListingMedia is a photo or video attached to a listing.
type ListingMedia struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ListingID  uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;index"`
	MediaType  string    `json:"media_type" gorm:"type:varchar(20);not null;default:'photo'"`
	ObjectKey  string    `json:"-" gorm:"not null"`
	Position   int       `json:"position" gorm:"not null;default:0"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (ListingMedia) TableName() string { return "listing_media" }
