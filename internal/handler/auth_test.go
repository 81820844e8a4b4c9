package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mraihan/quicknotes/internal/apperror"
	"github.com/mraihan/quicknotes/internal/auth"
	"github.com/mraihan/quicknotes/internal/model"
	"github.com/mraihan/quicknotes/internal/service"
)

// memUserRepo is a minimal in-memory user store for handler tests.
type memUserRepo struct {
	byID   map[string]*model.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*model.User)}
}

func (m *memUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.byID {
		if u.Email == user.Email {
			return apperror.Conflict("email", "user already exists with that email")
		}
		if u.Username == user.Username {
			return apperror.Conflict("username", "user already exists with that username")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memUserRepo) Save(_ context.Context, user *model.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *memUserRepo) GetByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	for _, u := range m.byID {
		if u.GoogleID != "" && u.GoogleID == googleID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", googleID)
}

func newTestAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	auths := service.NewAuthService(newMemUserRepo(), tokens, auth.NewPasswordServiceForTest(), logger)

	return NewAuthHandler(auths, nil, "http://localhost:5173", logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// =========================================================================
// SIGNUP TESTS
// =========================================================================

func TestHandleSignup_Created(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleSignup, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Token    string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" || resp.Token == "" {
		t.Errorf("response missing id or token: %+v", resp)
	}
	if resp.Username != "alice" {
		t.Errorf("username = %q, want %q", resp.Username, "alice")
	}
	if strings.Contains(rec.Body.String(), "secret123") {
		t.Error("response leaks the password")
	}
}

func TestHandleSignup_InvalidJSON(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleSignup, "/api/auth/signup", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSignup_ShortPassword(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleSignup, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"12345"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSignup_DuplicateEmailIsConflict(t *testing.T) {
	h := newTestAuthHandler(t)

	first := postJSON(t, h.HandleSignup, "/api/auth/signup",
		`{"username":"alice","email":"taken@example.com","password":"secret123"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("setup: status = %d", first.Code)
	}

	rec := postJSON(t, h.HandleSignup, "/api/auth/signup",
		`{"username":"bob","email":"taken@example.com","password":"secret123"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error != "conflict" {
		t.Errorf("error type = %q, want %q", resp.Error, "conflict")
	}
	if !strings.Contains(resp.Message, "email") {
		t.Errorf("conflict message %q should name the colliding field", resp.Message)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestHandleLogin_OK(t *testing.T) {
	h := newTestAuthHandler(t)

	postJSON(t, h.HandleSignup, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`)

	rec := postJSON(t, h.HandleLogin, "/api/auth/login",
		`{"email":"alice@example.com","password":"secret123"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_WrongCredentials(t *testing.T) {
	h := newTestAuthHandler(t)

	postJSON(t, h.HandleSignup, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`)

	wrongPass := postJSON(t, h.HandleLogin, "/api/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`)
	noAccount := postJSON(t, h.HandleLogin, "/api/auth/login",
		`{"email":"nobody@example.com","password":"whatever"}`)

	if wrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-password status = %d, want 401", wrongPass.Code)
	}
	if noAccount.Code != http.StatusUnauthorized {
		t.Fatalf("no-account status = %d, want 401", noAccount.Code)
	}
	// Identical bodies, or the endpoint leaks which emails exist.
	if wrongPass.Body.String() != noAccount.Body.String() {
		t.Errorf("bodies differ:\n%s\n%s", wrongPass.Body.String(), noAccount.Body.String())
	}
}

// =========================================================================
// GOOGLE CALLBACK TESTS
// =========================================================================

func TestHandleGoogleCallback_MissingStateRedirectsToLogin(t *testing.T) {
	h := newTestAuthHandler(t)

	// No oauth_state cookie at all: the flow wasn't started here.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=x&state=y", nil)
	rec := httptest.NewRecorder()

	h.HandleGoogleCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "http://localhost:5173/login?error=google_auth_failed" {
		t.Errorf("Location = %q, want the generic login error redirect", loc)
	}
}

func TestHandleGoogleCallback_StateMismatch(t *testing.T) {
	h := newTestAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=x&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "legit"})
	rec := httptest.NewRecorder()

	h.HandleGoogleCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=google_auth_failed") {
		t.Errorf("Location = %q, want the generic login error redirect", loc)
	}
}

// =========================================================================
// ERROR MAPPING TESTS
// =========================================================================

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperror.ValidationFailed("x", "bad"), http.StatusBadRequest},
		{"unauthenticated", apperror.Unauthenticated("no"), http.StatusUnauthorized},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden},
		{"not found", apperror.NotFound("note", "1"), http.StatusNotFound},
		{"conflict", apperror.Conflict("email", "taken"), http.StatusConflict},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("note", "1")), http.StatusNotFound},
		{"unknown", fmt.Errorf("driver exploded: /var/db path"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestWriteError_UnknownErrorsNeverLeakDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"))

	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("response leaked internal detail: %s", rec.Body.String())
	}
}
