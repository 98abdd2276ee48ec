package models

import "time"

// SessionState is the lifecycle state of a session.
type SessionState int

const (
	// StateActive sessions can be used to refresh access tokens.
	StateActive SessionState = iota
	// StateRevoked is terminal: a revoked session never becomes active again.
	StateRevoked
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Session is one login of an account. Invalidation flips Valid to false and
// never deletes the record.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Valid     bool      `json:"valid"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State reports the session lifecycle state derived from Valid.
func (s *Session) State() SessionState {
	if s.Valid {
		return StateActive
	}
	return StateRevoked
}
