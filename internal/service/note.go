package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mraihan/quicknotes/internal/apperror"
	"github.com/mraihan/quicknotes/internal/model"
	"github.com/mraihan/quicknotes/internal/repository"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 100000 // ~100KB of text
)

// NoteService handles the note CRUD rules. Every operation is scoped to
// the authenticated owner: reads and writes against another user's note
// come back as ErrForbidden, and listing only ever queries by owner.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new note for the given owner.
func (s *NoteService) Create(ctx context.Context, userID, title, content string, tags []string) (*model.Note, error) {
	title = strings.TrimSpace(title)

	if title == "" || content == "" {
		return nil, apperror.ValidationFailed("", "please add a title and content")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}

	note := &model.Note{
		UserID:  userID,
		Title:   title,
		Content: content,
		Tags:    cleanTags(tags),
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("userID", userID),
	)

	return note, nil
}

// GetByID retrieves a single note, enforcing ownership.
func (s *NoteService) GetByID(ctx context.Context, userID, id string) (*model.Note, error) {
	note, err := s.ownedNote(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// List returns the user's notes, newest-updated first, optionally
// filtered by a case-insensitive search across title, content, and tags.
func (s *NoteService) List(ctx context.Context, userID, search string) ([]model.Note, error) {
	notes, err := s.repo.ListByUser(ctx, userID, strings.TrimSpace(search))
	if err != nil {
		s.logger.Error("failed to list notes",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Update modifies an existing note owned by userID. Empty title leaves
// the stored title; content and tags are always replaced, since a user
// may legitimately clear them.
func (s *NoteService) Update(ctx context.Context, userID, id, title, content string, tags []string) (*model.Note, error) {
	note, err := s.ownedNote(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title != "" {
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		note.Title = title
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	note.Content = content
	note.Tags = cleanTags(tags)

	if err := s.repo.Update(ctx, note); err != nil {
		s.logger.Error("failed to update note",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating note: %w", err)
	}

	s.logger.Info("note updated", slog.String("id", note.ID))

	return note, nil
}

// Delete removes a note owned by userID.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedNote(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("note deleted", slog.String("id", id))
	return nil
}

// ownedNote fetches a note and checks it belongs to userID. A foreign
// note is ErrForbidden, not ErrNotFound — the note exists, the caller
// just isn't allowed to touch it.
func (s *NoteService) ownedNote(ctx context.Context, userID, id string) (*model.Note, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "note ID is required")
	}

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.UserID != userID {
		return nil, apperror.Forbidden("not authorized to access this note")
	}

	return note, nil
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}
