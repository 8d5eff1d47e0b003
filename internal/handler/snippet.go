package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-vault/internal/service"
)

// SnippetHandler serves CRUD for code snippets. Listing and reading work
// anonymously (public snippets only); writes require a signed-in owner.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

type createSnippetRequest struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	Language     string   `json:"language" validate:"required"`
	CategoryID   *string  `json:"categoryId"`
	CollectionID *string  `json:"collectionId"`
	IsPublic     bool     `json:"isPublic"`
	Tags         []string `json:"tags"`
}

// updateSnippetRequest uses pointers so an omitted field is left alone.
type updateSnippetRequest struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Content      *string   `json:"content"`
	Language     *string   `json:"language"`
	CategoryID   *string   `json:"categoryId"`
	CollectionID *string   `json:"collectionId"`
	IsPublic     *bool     `json:"isPublic"`
	Tags         *[]string `json:"tags"`
}

// HandleList returns the snippets the caller can see.
//
// HTTP: GET /api/snippets?q=&language=&tag=&categoryId=&collectionId=&sortBy=&order=&limit=&offset=
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	snippets, err := h.snippets.List(r.Context(), userID(r), service.ListSnippetsParams{
		Query:        q.Get("q"),
		Language:     q.Get("language"),
		Tag:          q.Get("tag"),
		CategoryID:   q.Get("categoryId"),
		CollectionID: q.Get("collectionId"),
		SortBy:       q.Get("sortBy"),
		Order:        q.Get("order"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snippets": snippets})
}

// HandleGetByID: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snippet": snippet})
}

// HandleCreate: POST /api/snippets → 201
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[createSnippetRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID(r), service.SnippetInput{
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		Language:     req.Language,
		CategoryID:   req.CategoryID,
		CollectionID: req.CollectionID,
		IsPublic:     req.IsPublic,
		Tags:         req.Tags,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"snippet": snippet})
}

// HandleUpdate: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[updateSnippetRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), userID(r), chi.URLParam(r, "id"), service.SnippetPatch{
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		Language:     req.Language,
		CategoryID:   req.CategoryID,
		CollectionID: req.CollectionID,
		IsPublic:     req.IsPublic,
		Tags:         req.Tags,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snippet": snippet})
}

// HandleDelete: DELETE /api/snippets/{id} → 204
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
