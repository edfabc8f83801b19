package sqlstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

type userRecord struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	Username     string    `gorm:"size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	FirstName    string    `gorm:"size:255;not null"`
	LastName     string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:32;not null;index"`
	CreatedAt    time.Time `gorm:"index"`
}

func (userRecord) TableName() string { return "users" }

// BeforeCreate sets the UUID before inserting.
func (u *userRecord) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID.String(),
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         domain.Role(u.Role),
		CreatedAt:    u.CreatedAt.UTC(),
	}
}

func newUserRecord(u *domain.User) *userRecord {
	return &userRecord{
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt.UTC(),
	}
}

type authEventRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Type       string    `gorm:"size:32;not null;index"`
	Email      string    `gorm:"size:255;index"`
	UserID     string    `gorm:"size:36"`
	Role       string    `gorm:"size:32"`
	RemoteIP   string    `gorm:"size:64"`
	RequestID  string    `gorm:"size:64"`
	OccurredAt time.Time `gorm:"not null;index"`
}

func (authEventRecord) TableName() string { return "auth_events" }
