package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeGitHub(t *testing.T, user, emails string) *GitHubProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(user))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if emails == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Write([]byte(emails))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("id", "secret", "http://localhost/callback")
	p.apiBase = srv.URL
	return p
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider("client-1", "secret", "http://localhost/auth/github/callback")
	url := p.AuthURL("state-xyz")

	assert.True(t, strings.HasPrefix(url, "https://github.com/login/oauth/authorize"))
	assert.Contains(t, url, "state=state-xyz")
	assert.Contains(t, url, "client_id=client-1")
}

func TestGitHubProvider_FetchUser(t *testing.T) {
	ctx := context.Background()

	t.Run("public email", func(t *testing.T) {
		p := newFakeGitHub(t, `{"id":1,"login":"octo","email":"octo@example.com","avatar_url":"a"}`, "")
		u, err := p.fetchUser(ctx, http.DefaultClient)
		require.NoError(t, err)
		assert.Equal(t, "octo@example.com", u.Email)
	})

	t.Run("hidden email falls back to primary verified", func(t *testing.T) {
		p := newFakeGitHub(t, `{"id":2,"login":"shy","email":""}`,
			`[{"email":"old@example.com","primary":false,"verified":true},{"email":"main@example.com","primary":true,"verified":true}]`)
		u, err := p.fetchUser(ctx, http.DefaultClient)
		require.NoError(t, err)
		assert.Equal(t, "main@example.com", u.Email)
	})

	t.Run("no email at all gets noreply address", func(t *testing.T) {
		p := newFakeGitHub(t, `{"id":3,"login":"ghost"}`, "")
		u, err := p.fetchUser(ctx, http.DefaultClient)
		require.NoError(t, err)
		assert.Equal(t, "3+ghost@users.noreply.github.com", u.Email)
	})

	t.Run("zero id rejected", func(t *testing.T) {
		p := newFakeGitHub(t, `{"id":0}`, "")
		_, err := p.fetchUser(ctx, http.DefaultClient)
		assert.Error(t, err)
	})
}
