package handler

import (
	"time"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

type signupRequest struct {
	Email     string `json:"email"     example:"ops.lead@plant.io"`
	Password  string `json:"password"  example:"secret1"`
	FirstName string `json:"firstName" example:"Ana"`
	LastName  string `json:"lastName"  example:"Rivera"`
	Role      string `json:"role,omitempty" example:"Supervisor"`
}

type loginRequest struct {
	Email    string `json:"email"    example:"ops.lead@plant.io"`
	Password string `json:"password" example:"secret1"`
}

// userResponse is the public projection of a user. It never carries the hash.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type signupResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

type sessionInfo struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenID   string    `json:"tokenId,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type meResponse struct {
	User    userResponse `json:"user"`
	Session sessionInfo  `json:"session"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	Session       *sessionInfo `json:"session,omitempty"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type rolesResponse struct {
	Roles  []string            `json:"roles"`
	Guards map[string][]string `json:"guards"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toSessionInfo(id *domain.Identity) sessionInfo {
	return sessionInfo{
		UserID:    id.UserID,
		Email:     id.Email,
		Role:      string(id.Role),
		TokenID:   id.TokenID,
		IssuedAt:  id.IssuedAt,
		ExpiresAt: id.ExpiresAt,
	}
}

func roleNames(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
