package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/apierr"
	"havenhomes/marketplace-backend/internal/vetting"
)

// Service stores in-app notifications and pushes events to the admin feed.
type Service struct {
	db     *gorm.DB
	hub    *Hub
	logger *zap.Logger
}

// NewService creates a new notification service. hub may be nil when the
// admin feed is disabled.
func NewService(db *gorm.DB, hub *Hub, logger *zap.Logger) *Service {
	return &Service{db: db, hub: hub, logger: logger}
}

// DecisionMade records an in-app notification for the listing owner and
// pushes the decision onto the admin feed. Implements vetting.Notifier.
func (s *Service) DecisionMade(ctx context.Context, ownerID, listingID uuid.UUID, title string, decision vetting.Decision, note string) {
	kind := KindListingVerified
	body := fmt.Sprintf("Your listing %q has been verified and is now live on the marketplace.", title)
	if decision == vetting.DecisionRejected {
		kind = KindListingRejected
		body = fmt.Sprintf("Your listing %q was rejected after review.", title)
		if note != "" {
			body += " Reviewer note: " + note
		}
	}

	metadata, _ := json.Marshal(map[string]string{
		"listing_id": listingID.String(),
		"decision":   string(decision),
	})
	notification := &Notification{
		ID:       uuid.New(),
		UserID:   ownerID,
		Kind:     kind,
		Title:    title,
		Body:     body,
		Metadata: datatypes.JSON(metadata),
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		s.logger.Error("Failed to store owner notification",
			zap.String("listing_id", listingID.String()), zap.Error(err))
	}

	if s.hub != nil {
		s.hub.Broadcast(FeedEvent{
			Type: "vetting_decision",
			Data: map[string]interface{}{
				"listing_id": listingID.String(),
				"title":      title,
				"decision":   string(decision),
			},
			Timestamp: time.Now(),
		})
	}
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var items []Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "notification store unavailable", err)
	}
	return items, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return apierr.Wrap(apierr.KindUnavailable, "notification store unavailable", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&Notification{}).
			Where("id = ? AND user_id = ?", notificationID, userID).
			Count(&count).Error; err == nil && count > 0 {
			// Already read; marking again is a no-op.
			return nil
		}
		return apierr.New(apierr.KindNotFound, "notification not found")
	}
	return nil
}
