package ports

import (
	"context"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

// ListUsersFilter carries the query parameters for the user directory.
type ListUsersFilter struct {
	Role   domain.Role // optional
	Search string      // optional: partial match on email, username or name
	Page   int         // 1-based
	Limit  int         // capped at 100 by the service
}

// UserRepository is the credential store.
type UserRepository interface {
	// Create persists u and returns the stored copy with its ID set.
	// A duplicate email maps to domain.ErrUserExists.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	// FindByEmail returns domain.ErrUserNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// List returns a page of users matching filter and the total count.
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}

// AuditRepository appends to the auth audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
