package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

// AuditRepository appends auth events to the auth_events table.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(s *Store) *AuditRepository {
	return &AuditRepository{db: s.DB}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	rec := &authEventRecord{
		Type:       string(event.Type),
		Email:      event.Email,
		UserID:     event.UserID,
		Role:       string(event.Role),
		RemoteIP:   event.RemoteIP,
		RequestID:  event.RequestID,
		OccurredAt: event.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
