package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
)

type CollaborationService interface {
	Join(ctx context.Context, snippetID, userID string) (*model.CollaborationSession, error)
	UpdateCursor(ctx context.Context, snippetID, userID string, cursor int64) error
	Leave(ctx context.Context, snippetID, userID string) error
	ListActive(ctx context.Context, snippetID string) ([]model.CollaborationSession, error)
}

// CollaborationHandler exposes presence: who is looking at a snippet and
// where their cursor is. Clients poll HandleSessions.
type CollaborationHandler struct {
	presence CollaborationService
	logger   *slog.Logger
}

func NewCollaborationHandler(presence CollaborationService, logger *slog.Logger) *CollaborationHandler {
	return &CollaborationHandler{presence: presence, logger: logger}
}

type sessionRequest struct {
	SnippetID string `json:"snippetId" validate:"required"`
}

type cursorRequest struct {
	SnippetID      string `json:"snippetId" validate:"required"`
	CursorPosition *int64 `json:"cursorPosition" validate:"required,gte=0"`
}

// HandleJoin: POST /collaboration/join {"snippetId": "..."}
func (h *CollaborationHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[sessionRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.presence.Join(r.Context(), req.SnippetID, userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

// HandleUpdate: POST /collaboration/update {"snippetId": "...", "cursorPosition": 42}
func (h *CollaborationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[cursorRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.presence.UpdateCursor(r.Context(), req.SnippetID, userID(r), *req.CursorPosition); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

// HandleLeave: DELETE /collaboration/leave {"snippetId": "..."}
func (h *CollaborationHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[sessionRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.presence.Leave(r.Context(), req.SnippetID, userID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

// HandleSessions: GET /collaboration/sessions?snippetId=...
func (h *CollaborationHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	snippetID := r.URL.Query().Get("snippetId")
	if snippetID == "" {
		writeError(w, h.logger, apperror.ValidationFailed("snippetId", "snippetId is required"))
		return
	}

	sessions, err := h.presence.ListActive(r.Context(), snippetID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
