// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/mraihan/quicknotes/internal/model"
)

// UserRepository is the credential store. It is the single source of
// truth for User records: uniqueness of username, email, and google_id
// is enforced here, atomically, at the storage layer. Create and Save
// return apperror.ErrConflict (with the colliding field) on violation;
// lookups return apperror.ErrNotFound when no row matches.
//
// The store only ever sees password hashes — hashing happens in the
// service layer before a record gets here.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Save(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
}

// NoteRepository stores notes. Ownership checks live in the service
// layer; ListByUser is the only query that filters by owner directly.
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetByID(ctx context.Context, id string) (*model.Note, error)
	// ListByUser returns the user's notes, newest-updated first. A
	// non-empty search term filters case-insensitively across title,
	// content, and tags.
	ListByUser(ctx context.Context, userID, search string) ([]model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id string) error
}
