package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures are collapsed into two sentinel errors so the
// middleware (and its tests) can tell an expired token from a broken
// one without parsing library error strings.
var (
	// ErrTokenExpired means the token was valid once but is past its exp claim.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenMalformed covers everything else: bad format, wrong
	// signature, wrong issuer, missing subject.
	ErrTokenMalformed = errors.New("auth: token malformed or invalid")
)

const issuer = "quicknotes"

// TokenService issues and verifies the stateless bearer tokens that
// identify a user on every API call.
//
// A token is an HS256-signed JWT carrying the user ID in the "sub"
// claim plus issued-at and expiry. The server stores nothing per token:
// possession of a token with a valid signature and unexpired "exp" IS
// the session. Rotating the secret therefore invalidates every
// outstanding token at once — that's intentional.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given signing secret
// and default token lifetime. The secret should be at least 32 bytes of
// random data in production (JWT_SECRET=$(openssl rand -hex 32)).
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. We only need the registered claims — the
// user ID travels in "sub" (Subject), the standard claim for the token
// owner.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a token for the given userID using the
// configured lifetime (30 days by default, per JWT_EXPIRES_IN).
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL creates a token with a custom lifetime. Used by tests to
// mint already-expired tokens; production code goes through Issue.
func (s *TokenService) IssueWithTTL(userID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token string, returning the userID from
// the "sub" claim.
//
// Checks performed: signature integrity, expiry, issuer, and — via
// jwt.WithValidMethods — that the algorithm really is HS256. Pinning the
// algorithm blocks confusion attacks where an attacker submits a token
// signed with "none".
//
// Failure modes: ErrTokenExpired for a token past its expiry,
// ErrTokenMalformed for everything else (both wrap the library error
// for logging).
func (s *TokenService) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", ErrTokenMalformed
	}

	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrTokenMalformed)
	}

	return c.Subject, nil
}
