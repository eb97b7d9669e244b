package domain

import "time"

// Session is an authenticated operator session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}
