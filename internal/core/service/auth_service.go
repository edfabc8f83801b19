package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
	"github.com/mfgops/operations-dashboard/internal/pkg/metrics"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// AuthDeps groups the collaborators of AuthService. Audit and Limiter are optional.
type AuthDeps struct {
	Users   ports.UserRepository
	Audit   ports.AuditRepository
	Hasher  ports.PasswordHasher
	Tokens  ports.TokenService
	Limiter ports.LoginLimiter
}

// AuthService implements signup, login and the read-only user directory.
type AuthService struct {
	users    ports.UserRepository
	audit    ports.AuditRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	limiter  ports.LoginLimiter
	validate *inputValidator
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps AuthDeps, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    deps.Users,
		audit:    deps.Audit,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		limiter:  deps.Limiter,
		validate: newInputValidator(),
		log:      log,
		now:      time.Now,
	}
}

// Signup validates in, hashes the password and persists a new user.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Signup")
	defer span.End()

	fields := signupFields{
		Email:     domain.NormalizeEmail(in.Email),
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      strings.TrimSpace(in.Role),
	}
	if err := s.validate.signup(fields); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	role := domain.DefaultRole
	if fields.Role != "" {
		role = domain.Role(fields.Role)
	}

	// Fast path only; the unique index is what guarantees one user per email.
	if _, err := s.users.FindByEmail(ctx, fields.Email); err == nil {
		metrics.SignupsTotal.WithLabelValues("conflict").Inc()
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, s.signupFailed(span, fmt.Errorf("signup: lookup: %w", err))
	}

	hash, err := s.hasher.Hash(ctx, fields.Password)
	if err != nil {
		return nil, s.signupFailed(span, fmt.Errorf("signup: hash password: %w", err))
	}

	created, err := s.users.Create(ctx, &domain.User{
		Email:        fields.Email,
		Username:     domain.UsernameFromEmail(fields.Email),
		PasswordHash: hash,
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.SignupsTotal.WithLabelValues("conflict").Inc()
			return nil, domain.ErrUserExists
		}
		return nil, s.signupFailed(span, fmt.Errorf("signup: create user: %w", err))
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	span.SetAttributes(attribute.String("auth.user_id", created.ID), attribute.String("auth.role", string(role)))
	s.record(ctx, domain.AuthEventSignup, created.Email, created, in.Meta)

	s.log.Info().
		Str("user_id", created.ID).
		Str("role", string(created.Role)).
		Msg("user signed up")

	return created.Sanitized(), nil
}

func (s *AuthService) signupFailed(span trace.Span, err error) error {
	metrics.SignupsTotal.WithLabelValues("error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "signup failed")
	return err
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	fields := loginFields{Email: domain.NormalizeEmail(in.Email), Password: in.Password}
	if err := s.validate.login(fields); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	email := fields.Email

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
		} else if !allowed {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
			s.record(ctx, domain.AuthEventLoginThrottled, email, nil, in.Meta)
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.compareDummy(ctx, fields.Password)
		return nil, s.rejectLogin(ctx, email, nil, in.Meta)
	case err != nil:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("login: lookup: %w", err)
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, fields.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "compare failed")
		return nil, fmt.Errorf("login: compare password: %w", err)
	}
	if !ok {
		return nil, s.rejectLogin(ctx, email, user, in.Meta)
	}

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset login failure counter")
		}
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("auth.user_id", user.ID), attribute.String("auth.role", string(user.Role)))
	s.record(ctx, domain.AuthEventLoginSucceeded, email, user, in.Meta)

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")

	return &ports.LoginResult{Token: token, User: user.Sanitized()}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, email string, user *domain.User, meta domain.RequestMeta) error {
	if s.limiter != nil {
		if err := s.limiter.RecordFailure(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("failed to record login failure")
		}
	}
	metrics.LoginsTotal.WithLabelValues("invalid").Inc()
	s.record(ctx, domain.AuthEventLoginFailed, email, user, meta)
	return domain.ErrInvalidCredentials
}

// compareDummy spends one bcrypt comparison so unknown emails take as long as
// wrong passwords.
func (s *AuthService) compareDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		// Built once for the process, so it must not die with the first request.
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), "mfg-ops-timing-equalizer")
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash == "" {
		return
	}
	_, _ = s.hasher.Compare(ctx, s.dummyHash, password)
}

// GetUser returns the user with the given ID without its password hash.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u.Sanitized(), nil
}

// ListUsers returns a page of the directory. Page defaults to 1 and limit to 20,
// capped at 100.
func (s *AuthService) ListUsers(ctx context.Context, filter ports.ListUsersFilter) (*ports.UserPage, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	filter.Search = strings.TrimSpace(filter.Search)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i, u := range users {
		users[i] = u.Sanitized()
	}
	return &ports.UserPage{Users: users, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// SeedAdmin creates an Admin account for email unless one already exists.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	_, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	u, err := s.Signup(ctx, ports.SignupInput{
		Email:     email,
		Password:  password,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      string(domain.RoleAdmin),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info().Str("user_id", u.ID).Msg("seeded admin account")
	return nil
}

// record appends to the audit trail. Failures are logged and swallowed.
func (s *AuthService) record(ctx context.Context, typ domain.AuthEventType, email string, u *domain.User, meta domain.RequestMeta) {
	if s.audit == nil {
		return
	}
	event := &domain.AuthEvent{
		Type:       typ,
		Email:      email,
		RemoteIP:   meta.RemoteIP,
		RequestID:  meta.RequestID,
		OccurredAt: s.now().UTC(),
	}
	if u != nil {
		event.UserID = u.ID
		event.Role = u.Role
	}
	if err := s.audit.InsertEvent(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(typ)).Msg("failed to insert auth audit event")
	}
}
