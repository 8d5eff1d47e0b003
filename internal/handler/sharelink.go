package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/service"
)

// ShareLinkService is the subset of *service.ShareLinkService the handler
// needs.
type ShareLinkService interface {
	Issue(ctx context.Context, ownerID string, req service.IssueRequest) (*model.ShareLink, string, error)
	List(ctx context.Context, ownerID string) ([]model.ShareLink, error)
	Revoke(ctx context.Context, ownerID, linkID string) error
	Resolve(ctx context.Context, token string) (*model.SharedContent, error)
}

type ShareLinkHandler struct {
	links  ShareLinkService
	logger *slog.Logger
}

func NewShareLinkHandler(links ShareLinkService, logger *slog.Logger) *ShareLinkHandler {
	return &ShareLinkHandler{links: links, logger: logger}
}

type issueShareLinkRequest struct {
	SnippetID    string `json:"snippetId"`
	CollectionID string `json:"collectionId"`
	ExpiresIn    *int64 `json:"expiresIn" validate:"omitempty,gte=0"`
	MaxViews     *int64 `json:"maxViews" validate:"omitempty,gte=1"`
}

type issueShareLinkResponse struct {
	ShareLink *model.ShareLink `json:"shareLink"`
	URL       string           `json:"url"`
}

// HandleIssue creates a share link for a snippet or collection the caller
// owns.
//
// HTTP: POST /share-links
// REQUEST BODY: {"snippetId": "...", "expiresIn": 3600, "maxViews": 10}
func (h *ShareLinkHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[issueShareLinkRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	link, url, err := h.links.Issue(r.Context(), userID(r), service.IssueRequest{
		SnippetID:    req.SnippetID,
		CollectionID: req.CollectionID,
		ExpiresIn:    req.ExpiresIn,
		MaxViews:     req.MaxViews,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, issueShareLinkResponse{ShareLink: link, URL: url})
}

// HandleList returns the caller's links, newest first.
//
// HTTP: GET /share-links
func (h *ShareLinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shareLinks": links})
}

type revokeShareLinkRequest struct {
	LinkID string `json:"linkId" validate:"required"`
}

// HandleRevoke deletes one of the caller's links. Revoking an unknown or
// foreign link still answers success.
//
// HTTP: DELETE /share-links
// REQUEST BODY: {"linkId": "..."}
func (h *ShareLinkHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[revokeShareLinkRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.links.Revoke(r.Context(), userID(r), req.LinkID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

type resolvedShareLinkResponse struct {
	Content any                     `json:"content"`
	Type    model.SharedContentType `json:"type"`
}

// HandleResolve is the public side of a share link: no authentication, the
// token is the credential. Each successful call counts one view.
//
// HTTP: GET /share-links/{token}
// 404 unknown token, 410 expired or out of views.
func (h *ShareLinkHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	content, err := h.links.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Shared content must not be cached by intermediaries; every fetch is a
	// counted view.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resolvedShareLinkResponse{Content: content.Content(), Type: content.Type})
}
