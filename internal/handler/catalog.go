package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-vault/internal/service"
)

// CatalogHandler serves the records that organise snippets: categories,
// collections and favorites. All of it is per-user, except reading a
// public collection.
type CatalogHandler struct {
	categories  *service.CategoryService
	collections *service.CollectionService
	favorites   *service.FavoriteService
	logger      *slog.Logger
}

func NewCatalogHandler(
	categories *service.CategoryService,
	collections *service.CollectionService,
	favorites *service.FavoriteService,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		categories:  categories,
		collections: collections,
		favorites:   favorites,
		logger:      logger,
	}
}

type categoryRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"max=32"`
	Icon  string `json:"icon" validate:"max=64"`
}

type collectionRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type favoriteRequest struct {
	SnippetID string `json:"snippetId" validate:"required"`
}

// ---- categories: /api/categories ------------------------------------------

func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[categoryRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	category, err := h.categories.Create(r.Context(), userID(r), service.CategoryInput(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": category})
}

func (h *CatalogHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[categoryRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	category, err := h.categories.Update(r.Context(), userID(r), chi.URLParam(r, "id"), service.CategoryInput(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category})
}

func (h *CatalogHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- collections: /api/collections ----------------------------------------

func (h *CatalogHandler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.collections.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

// HandleGetCollection includes the member snippets visible to the caller.
func (h *CatalogHandler) HandleGetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.collections.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collection": collection})
}

func (h *CatalogHandler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[collectionRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	collection, err := h.collections.Create(r.Context(), userID(r), service.CollectionInput(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"collection": collection})
}

func (h *CatalogHandler) HandleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[collectionRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	collection, err := h.collections.Update(r.Context(), userID(r), chi.URLParam(r, "id"), service.CollectionInput(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collection": collection})
}

func (h *CatalogHandler) HandleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- favorites: /api/favorites --------------------------------------------

func (h *CatalogHandler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.favorites.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

// HandleAddFavorite is idempotent and answers 200 either way.
func (h *CatalogHandler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[favoriteRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	favorite, err := h.favorites.Add(r.Context(), userID(r), req.SnippetID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorite": favorite})
}

func (h *CatalogHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Remove(r.Context(), userID(r), chi.URLParam(r, "snippetId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
