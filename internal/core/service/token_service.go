package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

const (
	// DefaultTokenTTL is the lifetime of a session credential.
	DefaultTokenTTL = time.Hour
	// TokenIssuer is written to and required in the iss claim.
	TokenIssuer = "mfg-ops-dashboard"
)

var tracer = otel.Tracer("github.com/mfgops/operations-dashboard/internal/core/service")

// sessionClaims is the JWT payload of a session credential.
type sessionClaims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewTokenService(secret string, ttl time.Duration, log zerolog.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// Issue mints a token for u valid for the configured TTL.
func (s *TokenService) Issue(ctx context.Context, u *domain.User) (string, error) {
	_, span := tracer.Start(ctx, "TokenService.Issue")
	defer span.End()

	if len(s.secret) == 0 {
		span.SetStatus(codes.Error, "empty signing secret")
		return "", errors.New("issue token: empty signing secret")
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := sessionClaims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    TokenIssuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign failed")
		return "", fmt.Errorf("issue token: %w", err)
	}
	span.SetAttributes(attribute.String("auth.token_id", claims.ID))
	return signed, nil
}

// Verify checks the signature, algorithm, issuer and time window of raw.
func (s *TokenService) Verify(ctx context.Context, raw string) (*domain.Identity, error) {
	_, span := tracer.Start(ctx, "TokenService.Verify")
	defer span.End()

	if len(s.secret) == 0 {
		s.log.Error().Msg("token verification attempted with empty signing secret")
		span.SetStatus(codes.Error, "empty signing secret")
		return nil, domain.ErrTokenVerification
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		span.RecordError(err)
		if isRejectedToken(err) {
			span.SetStatus(codes.Error, "token rejected")
			return nil, domain.ErrInvalidToken
		}
		s.log.Error().Err(err).Msg("token verification failed")
		span.SetStatus(codes.Error, "verification error")
		return nil, domain.ErrTokenVerification
	}

	if claims.UserID == "" || !claims.Role.Valid() {
		span.SetStatus(codes.Error, "incomplete claims")
		return nil, domain.ErrInvalidToken
	}

	id := &domain.Identity{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	span.SetAttributes(
		attribute.String("auth.user_id", id.UserID),
		attribute.String("auth.role", string(id.Role)),
	)
	return id, nil
}

// isRejectedToken reports whether err means the token itself is bad, as
// opposed to a failure of the verification machinery.
func isRejectedToken(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenExpired,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenRequiredClaimMissing,
		jwt.ErrTokenInvalidIssuer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
