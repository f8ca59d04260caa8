package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mailnotes/server/internal/middleware"
	"github.com/mailnotes/server/internal/model"
	"github.com/mailnotes/server/internal/notes"
)

// NotesHandler serves the notes API. Every route expects RequireIdentity
// to have run.
type NotesHandler struct {
	notes  *notes.Service
	logger *slog.Logger
}

func NewNotesHandler(svc *notes.Service) *NotesHandler {
	return &NotesHandler{notes: svc, logger: slog.Default().With("component", "http.notes")}
}

type noteResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNoteResponse(n model.Note) noteResponse {
	return noteResponse{
		ID:        n.ID.String(),
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// HandleList handles GET /api/notes and GET /api/notas/getAllByIdUser
func (h *NotesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.notes.List(r.Context(), id.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]noteResponse, len(list))
	for i, n := range list {
		out[i] = toNoteResponse(n)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "notes": out})
}

// HandleCreate handles POST /api/notes
func (h *NotesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, http.StatusCreated)
}

// HandleLegacyCreate handles POST /api/nota/crear
func (h *NotesHandler) HandleLegacyCreate(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, http.StatusOK)
}

func (h *NotesHandler) create(w http.ResponseWriter, r *http.Request, status int) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.notes.Create(r.Context(), id.ID, body.get("content"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, map[string]any{"ok": true, "note": toNoteResponse(n)})
}

// HandleUpdate handles PUT /api/notes/{id}
func (h *NotesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.update(w, r, chi.URLParam(r, "id"), body.get("content"))
}

// HandleLegacyUpdate handles POST /api/nota/editar with the id in the body.
func (h *NotesHandler) HandleLegacyUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.update(w, r, body.get("id"), body.get("content"))
}

func (h *NotesHandler) update(w http.ResponseWriter, r *http.Request, rawID, content string) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	noteID, err := uuid.Parse(rawID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	n, err := h.notes.Update(r.Context(), id.ID, noteID, content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "note": toNoteResponse(n)})
}

// HandleDelete handles DELETE /api/notes/{id}
func (h *NotesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, chi.URLParam(r, "id"))
}

// HandleLegacyDelete handles POST /api/nota/borrar with the id in the body.
func (h *NotesHandler) HandleLegacyDelete(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.delete(w, r, body.get("id"))
}

func (h *NotesHandler) delete(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	noteID, err := uuid.Parse(rawID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	if err := h.notes.Delete(r.Context(), id.ID, noteID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *NotesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notes.ErrContentRequired):
		respondWithError(w, http.StatusBadRequest, "content is required")
	case errors.Is(err, notes.ErrNoteNotFound):
		respondWithError(w, http.StatusNotFound, "note not found")
	default:
		h.logger.ErrorContext(r.Context(), "notes operation failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
