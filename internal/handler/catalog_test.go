package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Categories(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "ada")
	_, bobToken := env.register(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/categories", token, map[string]any{"name": "Algorithms", "color": "#ff0000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[struct {
		Category struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"category"`
	}](t, rec)
	id := created.Category.ID

	rec = env.do(t, http.MethodPost, "/api/categories", token, map[string]any{"name": "Algorithms"})
	requireErrorCode(t, rec, http.StatusConflict, "conflict")

	rec = env.do(t, http.MethodPut, "/api/categories/"+id, token, map[string]any{"name": "Data structures"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Data structures"`)

	rec = env.do(t, http.MethodPut, "/api/categories/"+id, bobToken, map[string]any{"name": "stolen"})
	requireErrorCode(t, rec, http.StatusNotFound, "not_found")

	rec = env.do(t, http.MethodGet, "/api/categories", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"categories":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/categories/"+id, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/categories", token, map[string]any{})
	requireErrorCode(t, rec, http.StatusBadRequest, "validation_error")
}

type collectionBody struct {
	Collection struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsPublic bool   `json:"isPublic"`
		Snippets []struct {
			ID string `json:"id"`
		} `json:"snippets"`
	} `json:"collection"`
}

func TestCatalog_Collections(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "ada")
	_, bobToken := env.register(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/collections", token, map[string]any{"name": "Go tricks", "isPublic": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[collectionBody](t, rec).Collection.ID

	rec = env.do(t, http.MethodPost, "/api/snippets", token, map[string]any{
		"title": "public member", "language": "go", "isPublic": true, "collectionId": id,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/snippets", token, map[string]any{
		"title": "private member", "language": "go", "collectionId": id,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/collections/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[collectionBody](t, rec).Collection.Snippets, 2)

	rec = env.do(t, http.MethodGet, "/api/collections/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[collectionBody](t, rec).Collection.Snippets, 1, "visitors only see public members")

	rec = env.do(t, http.MethodPut, "/api/collections/"+id, bobToken, map[string]any{"name": "mine"})
	requireErrorCode(t, rec, http.StatusForbidden, "forbidden")

	rec = env.do(t, http.MethodPut, "/api/collections/"+id, token, map[string]any{"name": "Go tricks", "isPublic": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/collections/"+id, bobToken, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "not_found")

	rec = env.do(t, http.MethodGet, "/api/collections", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"snippetsCount":2`)

	rec = env.do(t, http.MethodDelete, "/api/collections/"+id, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/collections/"+id, token, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "not_found")
}

func TestCatalog_Favorites(t *testing.T) {
	env := newTestEnv(t)
	_, adaToken := env.register(t, "ada")
	_, bobToken := env.register(t, "bob")
	public := env.createSnippet(t, adaToken, "shared", true)
	private := env.createSnippet(t, adaToken, "secret", false)

	for range 2 {
		rec := env.do(t, http.MethodPost, "/api/favorites", bobToken, map[string]any{"snippetId": public})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/favorites", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Favorites []struct {
			SnippetID string `json:"snippetId"`
			Snippet   struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"favorites"`
	}](t, rec)
	require.Len(t, list.Favorites, 1)
	assert.Equal(t, public, list.Favorites[0].SnippetID)
	assert.Equal(t, "shared", list.Favorites[0].Snippet.Title)

	rec = env.do(t, http.MethodGet, "/api/snippets/"+public, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isFavorite":true`)
	assert.Contains(t, rec.Body.String(), `"favoritesCount":1`)

	rec = env.do(t, http.MethodPost, "/api/favorites", bobToken, map[string]any{"snippetId": private})
	requireErrorCode(t, rec, http.StatusNotFound, "not_found")

	rec = env.do(t, http.MethodDelete, "/api/favorites/"+public, bobToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/favorites/"+public, bobToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
