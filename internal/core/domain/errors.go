package domain

import (
	"errors"
	"strings"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindMissingCredential
	KindUnauthenticated
	KindInvalidCredential
	KindForbidden
	KindNotFound
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindValidation:        "validation",
	KindConflict:          "conflict",
	KindAuth:              "auth",
	KindMissingCredential: "missing_credential",
	KindUnauthenticated:   "unauthenticated",
	KindInvalidCredential: "invalid_credential",
	KindForbidden:         "forbidden",
	KindNotFound:          "not_found",
	KindRateLimited:       "rate_limited",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is an expected failure with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Signup and login failures.
var (
	ErrMissingFields       = newError(KindValidation, "All fields are required")
	ErrInvalidEmail        = newError(KindValidation, "Invalid email format")
	ErrWeakPassword        = newError(KindValidation, "Password must be at least 6 characters long")
	ErrPasswordTooLong     = newError(KindValidation, "Password must be at most 72 bytes long")
	ErrInvalidRole         = newError(KindValidation, "Invalid role")
	ErrLoginFieldsRequired = newError(KindValidation, "Email and password are required")
	ErrUserExists          = newError(KindConflict, "User with this email already exists")
	ErrInvalidCredentials  = newError(KindAuth, "Invalid credentials")
	ErrTooManyAttempts     = newError(KindRateLimited, "Too many login attempts, please try again later")
)

// Session and authorization failures.
var (
	ErrTokenRequired          = newError(KindMissingCredential, "Access token required")
	ErrInvalidToken           = newError(KindInvalidCredential, "Invalid or expired token")
	ErrTokenVerification      = newError(KindInternal, "Failed to authenticate token")
	ErrAuthenticationRequired = newError(KindUnauthenticated, "Authentication required")
)

var ErrUserNotFound = newError(KindNotFound, "User not found")

// NewForbidden builds the denial returned when a role is outside the permitted set.
func NewForbidden(allowed []Role) *Error {
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return newError(KindForbidden, "Access denied. Required roles: "+strings.Join(names, ", "))
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
