package model

import "time"

// Note is a free-text note owned by exactly one user. Tags are stored as
// a JSON array in SQLite and searched as plain text.
type Note struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	Tags      []string  `json:"tags"      db:"tags"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
