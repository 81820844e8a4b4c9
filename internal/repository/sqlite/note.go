package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/mraihan/quicknotes/internal/apperror"
	"github.com/mraihan/quicknotes/internal/model"
	"github.com/mraihan/quicknotes/internal/repository"
)

// compile-time check that *DB implements repository.NoteRepository
var _ repository.NoteRepository = (*DB)(nil)

// Tags are stored as a JSON array in a TEXT column. That keeps the
// schema to one table and lets the search LIKE match tag text directly.

// Create inserts a new note, generating the ID and timestamps in place.
func (db *DB) Create(ctx context.Context, note *model.Note) error {
	now := time.Now()
	note.ID = xid.New().String()
	note.CreatedAt = now
	note.UpdatedAt = now

	tags, err := marshalTags(note.Tags)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.UserID,
		note.Title,
		note.Content,
		tags,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID. Ownership is the service's concern.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Note, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, tags, created_at, updated_at
		 FROM notes WHERE id = ?`, id)

	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %s: %w", id, err)
	}

	return note, nil
}

// ListByUser returns the user's notes ordered by most recently updated.
// A non-empty search term matches case-insensitively as a substring of
// the title, the content, or any tag (the LIKE runs against the JSON
// tag text, which is how the tag search behaves from the client's side).
func (db *DB) ListByUser(ctx context.Context, userID, search string) ([]model.Note, error) {
	query := `SELECT id, user_id, title, content, tags, created_at, updated_at
		 FROM notes WHERE user_id = ?`
	args := []any{userID}

	if search != "" {
		query += ` AND (title LIKE ? OR content LIKE ? OR tags LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query += ` ORDER BY updated_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes for user %s: %w", userID, err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning note: %w", err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}

// Update persists changes to an existing note.
func (db *DB) Update(ctx context.Context, note *model.Note) error {
	note.UpdatedAt = time.Now()

	tags, err := marshalTags(note.Tags)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title,
		note.Content,
		tags,
		note.UpdatedAt,
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("note", note.ID)
	}

	return nil
}

// Delete removes a note by ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*model.Note, error) {
	var n model.Note
	var tags string

	err := s.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Content,
		&tags,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for note %s: %w", n.ID, err)
	}

	return &n, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(b), nil
}
