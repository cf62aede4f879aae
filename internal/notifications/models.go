package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification kinds delivered to listing owners.
const (
	KindListingVerified = "listing_verified"
	KindListingRejected = "listing_rejected"
)

// Notification is an in-app notification stored for a user.
type Notification struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Kind      string         `json:"kind" gorm:"type:varchar(40);not null"`
	Title     string         `json:"title" gorm:"not null"`
	Body      string         `json:"body"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

// FeedEvent is the message pushed over the admin activity feed.
type FeedEvent struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
