package ports

import (
	"context"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer to AuthService.Signup.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string // optional; defaults to Worker
	Meta      domain.RequestMeta
}

// LoginInput is the DTO passed from the transport layer to AuthService.Login.
type LoginInput struct {
	Email    string
	Password string
	Meta     domain.RequestMeta
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string
	User  *domain.User
}

// UserPage is a page of the user directory.
type UserPage struct {
	Users []*domain.User
	Total int64
	Page  int
	Limit int
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context, filter ListUsersFilter) (*UserPage, error)
}

// TokenService issues and verifies session credentials.
type TokenService interface {
	Issue(ctx context.Context, u *domain.User) (string, error)
	// Verify returns domain.ErrInvalidToken for malformed, expired or tampered
	// tokens and domain.ErrTokenVerification for anything else.
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// PasswordHasher hashes and compares passwords. Implementations may block
// until a worker is free; they return ctx.Err() if ctx ends first.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	// Compare returns (false, nil) on mismatch.
	Compare(ctx context.Context, hash, password string) (bool, error)
}

// LoginLimiter counts failed logins per email.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}
