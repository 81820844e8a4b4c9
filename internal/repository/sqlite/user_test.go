package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/mraihan/quicknotes/internal/apperror"
	"github.com/mraihan/quicknotes/internal/model"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(\":memory:\"): %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testUser(username, email string) *model.User {
	return &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$fakehashfortesting",
	}
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestUserCreate_AssignsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t)

	user := testUser("alice", "alice@example.com")
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	if err := db.Create(context.Background(), testUser("alice", "taken@example.com")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := db.Create(context.Background(), testUser("bob", "taken@example.com"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "email" {
		t.Errorf("conflict field = %q, want %q", appErr.Field, "email")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)

	if err := db.Create(context.Background(), testUser("taken", "a@example.com")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := db.Create(context.Background(), testUser("taken", "b@example.com"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "username" {
		t.Errorf("conflict field = %q, want %q", appErr.Field, "username")
	}
}

func TestUserCreate_DuplicateGoogleID(t *testing.T) {
	db := newTestDB(t)

	first := testUser("alice", "a@example.com")
	first.GoogleID = "g-1"
	if err := db.Create(context.Background(), first); err != nil {
		t.Fatalf("setup: %v", err)
	}

	second := testUser("bob", "b@example.com")
	second.GoogleID = "g-1"
	err := db.Create(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_ManyUsersWithoutGoogleID(t *testing.T) {
	db := newTestDB(t)

	// google_id is UNIQUE but stored as NULL when absent, and NULLs are
	// distinct in SQLite unique indexes. Several local-only accounts must
	// coexist without tripping the constraint.
	for _, u := range []*model.User{
		testUser("alice", "a@example.com"),
		testUser("bob", "b@example.com"),
		testUser("carol", "c@example.com"),
	} {
		if err := db.Create(context.Background(), u); err != nil {
			t.Fatalf("Create(%s) error = %v", u.Username, err)
		}
	}
}

// =========================================================================
// Lookup TESTS
// =========================================================================

func TestUserGetByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)

	user := testUser("alice", "alice@example.com")
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := db.GetByEmail(context.Background(), "Alice@Example.COM")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", got.ID, user.ID)
	}
}

func TestUserGetByEmail_Missing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByGoogleID(t *testing.T) {
	db := newTestDB(t)

	user := testUser("alice", "alice@example.com")
	user.GoogleID = "g-42"
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := db.GetByGoogleID(context.Background(), "g-42")
	if err != nil {
		t.Fatalf("GetByGoogleID() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByGoogleID() ID = %q, want %q", got.ID, user.ID)
	}
}

func TestUserGetByGoogleID_EmptyNeverMatchesLocalAccounts(t *testing.T) {
	db := newTestDB(t)

	// Local accounts store google_id as NULL; looking up "" must not
	// find them (NULL never equals '').
	if err := db.Create(context.Background(), testUser("alice", "a@example.com")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := db.GetByGoogleID(context.Background(), "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByGoogleID(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)

	if err := db.Create(context.Background(), testUser("alice", "a@example.com")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := db.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
}

// =========================================================================
// Save TESTS
// =========================================================================

func TestUserSave_LinksGoogleID(t *testing.T) {
	db := newTestDB(t)

	user := testUser("alice", "alice@example.com")
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("setup: %v", err)
	}
	originalHash := user.PasswordHash

	user.GoogleID = "g-99"
	user.AvatarURL = "https://example.com/a.png"
	if err := db.Save(context.Background(), user); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.GoogleID != "g-99" {
		t.Errorf("GoogleID = %q, want %q", got.GoogleID, "g-99")
	}
	if got.PasswordHash != originalHash {
		t.Error("Save() must not disturb the password hash")
	}
	if !got.HasPassword() {
		t.Error("linked account should still report a password")
	}
}

func TestUserSave_UnknownID(t *testing.T) {
	db := newTestDB(t)

	ghost := testUser("ghost", "ghost@example.com")
	ghost.ID = "never-created"

	err := db.Save(context.Background(), ghost)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Save() error = %v, want ErrNotFound", err)
	}
}

func TestUserGoogleAccount_NoPassword(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "gonly", Email: "gonly@example.com", GoogleID: "g-7"}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	// password_hash is NULL in storage; it must come back as the empty
	// string, not break the scan.
	if got.HasPassword() {
		t.Error("Google-only account must not report a password")
	}
}
