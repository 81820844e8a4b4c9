package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mraihan/quicknotes/internal/auth"
	"github.com/mraihan/quicknotes/internal/service"
)

// NoteHandler exposes the note CRUD endpoints. Every route is behind
// RequireAuth, so the owner is always present in the request context;
// the handler's only jobs are JSON parsing and response writing —
// ownership and validation live in the service.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

type noteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// HandleList returns the caller's notes, optionally filtered.
//
// HTTP: GET /api/notes?search=term
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	notes, err := h.notes.List(r.Context(), user.ID, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

// HandleGetByID returns one of the caller's notes.
//
// HTTP: GET /api/notes/{id}
func (h *NoteHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	note, err := h.notes.GetByID(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// HandleCreate saves a new note for the caller.
//
// HTTP: POST /api/notes
// BODY: {"title": "...", "content": "...", "tags": ["..."]}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	note, err := h.notes.Create(r.Context(), user.ID, req.Title, req.Content, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// HandleUpdate modifies one of the caller's notes.
//
// HTTP: PUT /api/notes/{id}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	note, err := h.notes.Update(r.Context(), user.ID, r.PathValue("id"), req.Title, req.Content, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// HandleDelete removes one of the caller's notes.
//
// HTTP: DELETE /api/notes/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id := r.PathValue("id")
	if err := h.notes.Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "note removed"})
}
