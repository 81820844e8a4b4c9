// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents one account. An account can be reached by two identity
// paths: a local email/password pair, a linked Google identity, or both.
//
// WHY PasswordHash AND GoogleID ARE BOTH OPTIONAL:
// A user created by local signup has a PasswordHash and no GoogleID.
// A user created by their first Google sign-in has a GoogleID and no
// PasswordHash. When the owner of a local account later signs in with
// Google using the same email, the GoogleID is linked onto the existing
// record. Every user has at least one of the two — the service layer
// guarantees this at creation time.
//
// PasswordHash is tagged `json:"-"` so it can never leak into an API
// response, no matter which handler serializes the struct.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"` // lowercase-normalized, unique
	PasswordHash string    `json:"-"         db:"password_hash"`
	GoogleID     string    `json:"-"         db:"google_id"` // empty = no linked Google identity
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// HasPassword reports whether local (email/password) login is possible
// for this account. False for accounts created purely via Google.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
