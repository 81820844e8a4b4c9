package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mraihan/quicknotes/internal/model"
)

// contextKey is an unexported type for context keys in this package.
// Using a package-private type means no other package can read or
// shadow the authenticated user stored in the request context.
type contextKey string

const userKey contextKey = "user"

// UserLoader is the slice of the user store the middleware needs: just
// the lookup by verified token subject. repository.UserRepository
// satisfies it.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth gates protected routes. Each request walks the same
// ladder, bailing out with 401 at the first broken rung:
//
//	no bearer credential        → "no token provided"
//	signature/format invalid    → "token malformed or invalid"
//	past expiry                 → "token expired"
//	subject no longer in store  → "user not found"
//
// On success the loaded user (password hash never serialized) is
// attached to the request context for handlers to read via
// UserFromContext. Nothing is retained between requests.
func RequireAuth(tokens *TokenService, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "not authorized, no token provided")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				switch {
				case errors.Is(err, ErrTokenExpired):
					writeUnauthorized(w, "not authorized, token expired")
				default:
					writeUnauthorized(w, "not authorized, token malformed or invalid")
				}
				return
			}

			// The token can outlive the account (deleted after issuance),
			// so the subject must still resolve to a stored user.
			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				writeUnauthorized(w, "not authorized, user not found")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the request
// context. Returns (nil, false) on routes not behind RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the credential from "Authorization: Bearer <t>".
// Returns ok=false for a missing header, a non-Bearer scheme, or an
// empty credential.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","message":%q}`, message)
}
