// Package service contains the business logic layer of the application.
//
// The layering follows the usual shape: handlers parse HTTP and write
// responses, services validate and enforce the rules, repositories talk
// to the database. Services accept primitives and domain structs, never
// *http.Request, and return apperror values, never status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/mraihan/quicknotes/internal/apperror"
	"github.com/mraihan/quicknotes/internal/auth"
	"github.com/mraihan/quicknotes/internal/model"
	"github.com/mraihan/quicknotes/internal/repository"
)

const MinPasswordLength = 6

// emailPattern is a deliberately simple shape check — word characters
// with optional dot/dash separators, an @, and a 2-3 letter TLD. Real
// validation happens when the user proves they can log in.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// whitespacePattern matches runs of whitespace, used when deriving a
// username from a Google display name.
var whitespacePattern = regexp.MustCompile(`\s+`)

// AuthService owns every way an identity enters or is checked by the
// system: local signup, local login, Google sign-in reconciliation, and
// token validation. It is the only writer of User records.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the resolved user with the issued bearer token.
// Every successful authentication path — signup, login, Google — ends
// by producing one of these; no token without a user, no user without a
// token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup registers a new local account.
//
// Validation: all three fields required, password at least 6 characters,
// email must look like an address. The email is lowercased before any
// lookup or write so it can serve as the cross-provider matching key.
//
// A duplicate email or username surfaces as apperror.ErrConflict naming
// the field — signup conflicts are the one authentication error that is
// allowed to be specific, because the caller has to know what to change.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if username == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "please add all fields (username, email, password)")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "please add a valid email")
	}

	// Pre-checks give the caller a precise conflict message. They are
	// advisory only — the UNIQUE constraints in the store are what
	// actually prevent duplicates under concurrency.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email", "user already exists with that email")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("username", "user already exists with that username")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}

	// The plaintext stops here: only the hash is ever handed to the store.
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", username, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.finish(user)
}

// Login authenticates a local email/password pair.
//
// ACCOUNT ENUMERATION:
// "No account with that email" and "wrong password" both return the
// same generic message. If the messages differed, anyone could probe
// which emails have accounts here. The only distinct 401 is for
// accounts that exist but have no password at all (Google-only), where
// telling the user to use Google sign-in reveals nothing they don't
// already know.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if !user.HasPassword() {
		return nil, apperror.Unauthenticated(
			"this account was registered using Google, please log in with Google")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthenticated("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.finish(user)
}

// LoginWithGoogle reconciles a verified Google profile into a local
// user: find by Google ID, or link by email, or create — in that order,
// and the order matters. Each lookup's result gates the next step; the
// email lookup in particular must complete before deciding to create,
// or two arrival orders of the same person would mint two accounts.
//
// The three branches:
//
//  1. Found by Google ID — a returning Google user. Refresh the avatar
//     if Google sent a different non-empty one; touch nothing else.
//  2. Found by email — a local account whose owner is authenticating
//     with Google for the first time. Link the Google ID onto the
//     record (and refresh the avatar). The existing password hash and
//     username are never overwritten: this is the merge path, and it
//     never fails the flow just because the account predates Google.
//  3. Neither — a brand-new user. Derive a username from the display
//     name, suffix it if taken, create with no password hash.
//
// A profile arriving with a different email than the local account's is
// deliberately treated as a new user: email is the only linking key
// besides the Google ID itself.
func (s *AuthService) LoginWithGoogle(ctx context.Context, profile *auth.GoogleProfile) (*AuthResult, error) {
	if profile == nil || profile.ID == "" || profile.Email == "" {
		return nil, apperror.Unauthenticated("Google profile missing email or ID")
	}

	result, err := s.reconcileGoogle(ctx, profile)
	if err == nil {
		return result, nil
	}

	// Two first-time sign-ins for the same person can race: both pass
	// the lookups, both try to create, and the store's UNIQUE
	// constraint fails the loser. That conflict means "someone else
	// just created this user" — re-running the lookup path finds and
	// links the winner's record instead of surfacing a raw conflict.
	if errors.Is(err, apperror.ErrConflict) {
		s.logger.Warn("google sign-in lost creation race, retrying lookup",
			slog.String("email", profile.Email))
		return s.reconcileGoogle(ctx, profile)
	}

	return nil, err
}

func (s *AuthService) reconcileGoogle(ctx context.Context, profile *auth.GoogleProfile) (*AuthResult, error) {
	email := normalizeEmail(profile.Email)

	// Branch 1: returning Google user.
	user, err := s.users.GetByGoogleID(ctx, profile.ID)
	if err == nil {
		if profile.Picture != "" && profile.Picture != user.AvatarURL {
			user.AvatarURL = profile.Picture
			if err := s.users.Save(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: updating avatar for %s: %w", user.ID, err)
			}
		}
		return s.finish(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google id: %w", err)
	}

	// Branch 2: existing local account with the same email — link it.
	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		user.GoogleID = profile.ID
		if profile.Picture != "" {
			user.AvatarURL = profile.Picture
		}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: linking google id to %s: %w", user.ID, err)
		}

		s.logger.Info("linked google identity to existing account",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
		return s.finish(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up email: %w", err)
	}

	// Branch 3: brand-new user.
	username, err := s.availableUsername(ctx, profile.Name)
	if err != nil {
		return nil, err
	}

	user = &model.User{
		Username:  username,
		Email:     email,
		GoogleID:  profile.ID,
		AvatarURL: profile.Picture,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating google user: %w", err)
	}

	s.logger.Info("user created via google sign-in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.finish(user)
}

// availableUsername derives a username from a Google display name:
// whitespace stripped, lowercased, with a time-based fallback for empty
// names. If the candidate is taken it gets a random numeric suffix and
// is retried — a handful of attempts is plenty given how unlikely even
// one collision is, but a silently dropped user is not an option, so
// the loop keeps going until a free name is found or the bound is hit.
func (s *AuthService) availableUsername(ctx context.Context, displayName string) (string, error) {
	base := strings.ToLower(whitespacePattern.ReplaceAllString(strings.TrimSpace(displayName), ""))
	if base == "" {
		base = fmt.Sprintf("user%d", time.Now().UnixMilli())
	}

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("service/auth: checking username %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%d", base, rand.Intn(1000))
	}

	return "", apperror.Conflict("username", "could not derive an available username")
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/auth/me handler after the middleware has verified the token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// ValidateToken verifies a bearer token string and returns the userID
// it encodes. Thin delegation so callers only import the service.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// finish issues the token for a fully resolved user. Every auth path
// funnels through here, which is what keeps the "no partial result"
// rule: an error from the issuer aborts the whole flow.
func (s *AuthService) finish(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
