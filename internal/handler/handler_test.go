package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/repository/sqlstore"
	"github.com/sakif/snippet-vault/internal/service"
)

// testEnv wires real services over an in-memory SQLite database behind a
// chi router laid out like the production one.
type testEnv struct {
	router   chi.Router
	db       *sqlstore.DB
	tokens   *auth.TokenService
	accounts *service.AuthService
	github   *fakeGitHub
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()

	db, err := sqlstore.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	accounts := service.NewAuthService(db, tokens, auth.NewPasswordService(bcrypt.MinCost), logger)
	snippets := service.NewSnippetService(db, db, db, logger)
	categories := service.NewCategoryService(db, logger)
	collections := service.NewCollectionService(db, db, logger)
	favorites := service.NewFavoriteService(db, db, logger)
	links := service.NewShareLinkService(db, db, db, "http://vault.test", logger)
	presence := service.NewCollaborationService(db, db, logger)

	gh := &fakeGitHub{}
	authH := NewAuthHandler(accounts, gh, tokens, false, logger)
	snippetH := NewSnippetHandler(snippets, logger)
	catalogH := NewCatalogHandler(categories, collections, favorites, logger)
	shareH := NewShareLinkHandler(links, logger)
	collabH := NewCollaborationHandler(presence, logger)
	healthH := NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/healthz", healthH.HandleHealth)
	r.Post("/auth/register", authH.HandleRegister)
	r.Post("/auth/login", authH.HandleLogin)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Get("/auth/github/callback", authH.HandleGitHubCallback)
	r.Get("/share-links/{token}", shareH.HandleResolve)

	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/api/snippets", snippetH.HandleList)
		r.Get("/api/snippets/{id}", snippetH.HandleGetByID)
		r.Get("/api/collections/{id}", catalogH.HandleGetCollection)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/me", authH.HandleMe)
		r.Put("/api/me", authH.HandleUpdateMe)
		r.Post("/api/snippets", snippetH.HandleCreate)
		r.Put("/api/snippets/{id}", snippetH.HandleUpdate)
		r.Delete("/api/snippets/{id}", snippetH.HandleDelete)
		r.Get("/api/categories", catalogH.HandleListCategories)
		r.Post("/api/categories", catalogH.HandleCreateCategory)
		r.Put("/api/categories/{id}", catalogH.HandleUpdateCategory)
		r.Delete("/api/categories/{id}", catalogH.HandleDeleteCategory)
		r.Get("/api/collections", catalogH.HandleListCollections)
		r.Post("/api/collections", catalogH.HandleCreateCollection)
		r.Put("/api/collections/{id}", catalogH.HandleUpdateCollection)
		r.Delete("/api/collections/{id}", catalogH.HandleDeleteCollection)
		r.Get("/api/favorites", catalogH.HandleListFavorites)
		r.Post("/api/favorites", catalogH.HandleAddFavorite)
		r.Delete("/api/favorites/{snippetId}", catalogH.HandleRemoveFavorite)
		r.Post("/share-links", shareH.HandleIssue)
		r.Get("/share-links", shareH.HandleList)
		r.Delete("/share-links", shareH.HandleRevoke)
		r.Post("/collaboration/join", collabH.HandleJoin)
		r.Post("/collaboration/update", collabH.HandleUpdate)
		r.Delete("/collaboration/leave", collabH.HandleLeave)
		r.Get("/collaboration/sessions", collabH.HandleSessions)
	})

	return &testEnv{router: r, db: db, tokens: tokens, accounts: accounts, github: gh}
}

// register creates a local account and returns its id and bearer token.
func (e *testEnv) register(t *testing.T, username string) (string, string) {
	t.Helper()
	res, err := e.accounts.Register(context.Background(), service.RegisterInput{
		Email:    username + "@example.com",
		Password: "password123",
		Username: username,
	})
	require.NoError(t, err)
	return res.User.ID, res.Token
}

// do sends body (marshalled unless it is a string) with an optional bearer
// token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	body := decodeBody[ErrorResponse](t, rec)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Error)
}

// createSnippet posts a snippet and returns its id.
func (e *testEnv) createSnippet(t *testing.T, token, title string, public bool) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/snippets", token, map[string]any{
		"title":    title,
		"content":  "fmt.Println(\"hi\")",
		"language": "go",
		"isPublic": public,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody[struct {
		Snippet struct {
			ID string `json:"id"`
		} `json:"snippet"`
	}](t, rec)
	return body.Snippet.ID
}

type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
	code string
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + state
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.code = code
	return f.user, f.err
}
