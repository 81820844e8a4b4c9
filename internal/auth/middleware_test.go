package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mraihan/quicknotes/internal/apperror"
	"github.com/mraihan/quicknotes/internal/model"
)

// fakeUserLoader serves users from a map, simulating the credential
// store for the unknown-subject case.
type fakeUserLoader struct {
	users map[string]*model.User
}

func (f *fakeUserLoader) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

// protectedEcho builds a RequireAuth-wrapped handler that records
// whether it ran and which user it saw.
func protectedEcho(t *testing.T, tokens *TokenService, users UserLoader) (http.Handler, *string) {
	t.Helper()
	var seenUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("UserFromContext() should return the user on a protected route")
			return
		}
		seenUserID = user.ID
		w.WriteHeader(http.StatusOK)
	})
	return RequireAuth(tokens, users)(next), &seenUserID
}

func TestRequireAuth_ValidToken(t *testing.T) {
	ts := newTestTokenService(t)
	loader := &fakeUserLoader{users: map[string]*model.User{
		"user-1": {ID: "user-1", Username: "alice"},
	}}
	handler, seen := protectedEcho(t, ts, loader)

	token, _ := ts.Issue("user-1")
	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if *seen != "user-1" {
		t.Errorf("handler saw user %q, want %q", *seen, "user-1")
	}
}

func TestRequireAuth_NoHeader(t *testing.T) {
	ts := newTestTokenService(t)
	handler, _ := protectedEcho(t, ts, &fakeUserLoader{})

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_NonBearerScheme(t *testing.T) {
	ts := newTestTokenService(t)
	handler, _ := protectedEcho(t, ts, &fakeUserLoader{})

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_MalformedToken(t *testing.T) {
	ts := newTestTokenService(t)
	handler, _ := protectedEcho(t, ts, &fakeUserLoader{})

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)
	loader := &fakeUserLoader{users: map[string]*model.User{
		"user-1": {ID: "user-1"},
	}}
	handler, _ := protectedEcho(t, ts, loader)

	token, _ := ts.IssueWithTTL("user-1", -time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_UnknownSubject(t *testing.T) {
	ts := newTestTokenService(t)
	// Empty store: the token verifies but its subject no longer exists
	// (account deleted after the token was issued).
	handler, _ := protectedEcho(t, ts, &fakeUserLoader{users: map[string]*model.User{}})

	token, _ := ts.Issue("deleted-user")
	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUserFromContext_Anonymous(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() should report no user on a bare context")
	}
}
