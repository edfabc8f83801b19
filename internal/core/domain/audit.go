package domain

import "time"

// AuthEventType names an entry in the auth audit trail.
type AuthEventType string

const (
	AuthEventSignup         AuthEventType = "signup"
	AuthEventLoginSucceeded AuthEventType = "login_succeeded"
	AuthEventLoginFailed    AuthEventType = "login_failed"
	AuthEventLoginThrottled AuthEventType = "login_throttled"
)

// AuthEvent is an append-only record of a credential operation.
type AuthEvent struct {
	Type       AuthEventType
	Email      string
	UserID     string // empty when the email is unknown
	Role       Role   // optional
	RemoteIP   string
	RequestID  string
	OccurredAt time.Time
}

// RequestMeta carries transport details recorded alongside audit events.
type RequestMeta struct {
	RemoteIP  string
	RequestID string
}
