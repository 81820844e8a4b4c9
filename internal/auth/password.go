// Package auth provides password hashing, JWT issue/verify, the Google
// OAuth provider, and the request-authentication middleware.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is a security feature: it makes offline brute-force
// attacks expensive while staying cheap enough for interactive login.
//
// bcrypt automatically:
//   - Generates a random salt per call (two users with the same password
//     get different hashes, and hashing the same password twice differs)
//   - Embeds the salt in the output (no separate salt column needed)
//   - Controls the work factor via "cost"
//
// The full output of bcrypt.GenerateFromPassword is self-contained:
//
//	$2a$12$<22-char salt><31-char hash>
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the production work factor. Cost 12 lands in the
// tens-of-milliseconds range on current server hardware — negligible for
// a login, brutal for an attacker hashing billions of guesses.
const DefaultBcryptCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected: the
// server passes the configured cost, tests pass bcrypt.MinCost so each
// hash takes microseconds instead of ~250ms.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the given cost.
// Costs below bcrypt.MinCost (4) are raised to the default — a zero
// value from an unset config must never silently weaken hashing.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost {
		cost = DefaultBcryptCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with the minimum
// bcrypt cost. Do NOT use in production — cost 4 is far too weak.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// Hash hashes the given plaintext password with bcrypt. The output is
// stored directly in the database; it includes the salt and cost, so
// Verify needs nothing else.
//
// Returns an error if the plaintext is longer than 72 bytes — bcrypt
// silently truncates beyond that, and we'd rather reject than surprise.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt
// hash. Returns nil on match, a non-nil error otherwise.
//
// A missing hash (account created via Google, no password set) is a
// plain mismatch, never a panic or an internal error — callers treat it
// exactly like a wrong password.
//
// bcrypt.CompareHashAndPassword compares in constant time internally,
// so response timing doesn't reveal how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return fmt.Errorf("auth: invalid password")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
