package models

import "time"

// Role is the access level granted by a successful login.
type Role string

const (
	RoleNone    Role = ""
	RoleStudent Role = "student" // read only
	RoleAdmin   Role = "admin"   // read and write
)

// CanWrite reports whether the role may mutate ledgers.
func (r Role) CanWrite() bool {
	return r == RoleAdmin
}

// Session is the server side record of an authenticated browser session.
type Session struct {
	ID              string    `json:"id"`
	Role            Role      `json:"role"`
	SelectedStudent string    `json:"selected_student,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
// A zero ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
