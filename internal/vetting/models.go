package vetting

import (
	"time"

	"github.com/google/uuid"

	"havenhomes/marketplace-backend/internal/listings"
)

// Price and document thresholds driving queue prioritization. Prices are in
// naira; comparisons are strict so a listing at exactly the threshold stays in
// the lower tier.
const (
	highValuePrice    int64 = 10_000_000
	urgentPrice       int64 = 50_000_000
	completeDocuments       = 3
	mediumDocuments         = 5
)

// UrgencyLevel is the derived review-priority tier of a queued listing.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyUrgent UrgencyLevel = "urgent"
)

// ValidUrgency reports whether u is a known tier.
func ValidUrgency(u UrgencyLevel) bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh || u == UrgencyUrgent
}

// UrgencyFor classifies a listing from its price and document count.
func UrgencyFor(price int64, documentCount int) UrgencyLevel {
	switch {
	case price > urgentPrice:
		return UrgencyUrgent
	case price > highValuePrice:
		return UrgencyHigh
	case documentCount >= mediumDocuments:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// IsHighValue reports whether the price crosses the high-value threshold.
func IsHighValue(price int64) bool { return price > highValuePrice }

// HasCompleteDocuments reports whether enough documents are attached.
func HasCompleteDocuments(documentCount int) bool { return documentCount >= completeDocuments }

// SortKey orders the vetting queue.
type SortKey string

const (
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortUrgent   SortKey = "urgent"
	SortLocation SortKey = "location"
)

// ValidSortKey reports whether k is a known sort key.
func ValidSortKey(k SortKey) bool {
	return k == SortNewest || k == SortOldest || k == SortUrgent || k == SortLocation
}

// Decision is the terminal outcome of a vetting review.
type Decision string

const (
	DecisionVerified Decision = "verified"
	DecisionRejected Decision = "rejected"
)

// ValidDecision reports whether d is a known decision.
func ValidDecision(d Decision) bool {
	return d == DecisionVerified || d == DecisionRejected
}

// Status returns the listing status a decision resolves to.
func (d Decision) Status() listings.ListingStatus {
	if d == DecisionVerified {
		return listings.StatusVerified
	}
	return listings.StatusRejected
}

// QueueQuery is the validated, normalized queue request.
type QueueQuery struct {
	Page     int
	PerPage  int
	Sort     SortKey
	State    string
	Priority UrgencyLevel
}

// QueueRow is the raw shape the repository scans a queue entry into; derived
// fields are computed by the service on top of it.
type QueueRow struct {
	ID            uuid.UUID                `json:"id"`
	OwnerID       uuid.UUID                `json:"owner_id"`
	Title         string                   `json:"title"`
	Category      listings.ListingCategory `json:"category"`
	Address       string                   `json:"address"`
	City          string                   `json:"city"`
	State         string                   `json:"state"`
	Price         int64                    `json:"price"`
	PricePeriod   listings.PricePeriod     `json:"price_period"`
	Status        listings.ListingStatus   `json:"status"`
	MLValidatedAt *time.Time               `json:"ml_validated_at"`
	CreatedAt     time.Time                `json:"created_at"`
	DocumentCount int                      `json:"document_count"`
	MediaCount    int                      `json:"media_count"`
	OwnerName     string                   `json:"owner_name"`
	OwnerPhone    string                   `json:"owner_phone"`
}

// QueueItem is a queue entry with its derived review annotations.
type QueueItem struct {
	QueueRow
	DaysWaiting          int          `json:"days_waiting"`
	HighValue            bool         `json:"high_value"`
	HasCompleteDocuments bool         `json:"has_complete_documents"`
	UrgencyLevel         UrgencyLevel `json:"urgency_level"`
}

// Pagination is page metadata for the queue response.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Summary aggregates the queue for the admin dashboard header. TotalPending
// covers the whole filtered queue; the remaining figures describe the current
// page only.
type Summary struct {
	TotalPending      int64   `json:"total_pending"`
	UrgentCount       int     `json:"urgent_count"`
	HighValueCount    int     `json:"high_value_count"`
	AverageWaitDays   float64 `json:"average_wait_days"`
	StatesRepresented int     `json:"states_represented"`
}

// Filters echoes what was applied and what can still be selected.
type Filters struct {
	Sort            SortKey      `json:"sort"`
	State           string       `json:"state,omitempty"`
	Priority        UrgencyLevel `json:"priority,omitempty"`
	AvailableStates []string     `json:"available_states"`
}

// QueuePage is the full admin queue response.
type QueuePage struct {
	Data       []QueueItem `json:"data"`
	Pagination Pagination  `json:"pagination"`
	Summary    Summary     `json:"summary"`
	Filters    Filters     `json:"filters"`
}

// VettingEvent is the audit record written for every review decision.
type VettingEvent struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ListingID  uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;index"`
	Decision   Decision  `json:"decision" gorm:"type:varchar(20);not null"`
	Note       string    `json:"note"`
	ReviewerID uuid.UUID `json:"reviewer_id" gorm:"type:uuid;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (VettingEvent) TableName() string { return "vetting_events" }
