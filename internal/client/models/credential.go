package models

import "time"

// Session is the authenticated-user payload cached after a successful login.
type Session struct {
	Token  string `json:"token"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// CachedCredential is a session (or other short-lived auth blob) held in the
// credential collection. Reads must check ExpiresAt and self-delete expired
// rows.
type CachedCredential struct {
	Key       string
	Value     []byte
	CachedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the credential is past its expiry at the given time.
func (c *CachedCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
