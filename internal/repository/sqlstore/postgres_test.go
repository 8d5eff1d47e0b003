package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// newPostgresDB starts a throwaway Postgres container. The test is skipped
// under -short or when no Docker daemon is reachable.
func newPostgresDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vault"),
		postgres.WithUsername("vault"),
		postgres.WithPassword("vault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := New(ctx, Postgres, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPostgres runs the dialect-sensitive paths against a real server:
// rebinding, upserts, the guarded view counter and time comparisons.
func TestPostgres(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	ada := &model.Profile{Email: "ada@example.com", Username: "ada"}
	require.NoError(t, db.CreateProfile(ctx, ada))
	assert.ErrorIs(t,
		db.CreateProfile(ctx, &model.Profile{Email: "ada@example.com", Username: "dup"}),
		apperror.ErrConflict)

	s := &model.Snippet{Title: "hello", Language: "go", UserID: ada.ID, Tags: []string{"x"}}
	require.NoError(t, db.Create(ctx, s))

	t.Run("list with filters", func(t *testing.T) {
		got, err := db.List(ctx, repository.SnippetFilter{ViewerID: ada.ID, Query: "HEL", Tag: "x"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].IsFavorite)
	})

	t.Run("favorite upsert", func(t *testing.T) {
		a, err := db.AddFavorite(ctx, ada.ID, s.ID)
		require.NoError(t, err)
		b, err := db.AddFavorite(ctx, ada.ID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
	})

	t.Run("concurrent consume", func(t *testing.T) {
		maxViews := int64(3)
		link := &model.ShareLink{Token: "pgtok", SnippetID: &s.ID, MaxViews: &maxViews, UserID: ada.ID}
		require.NoError(t, db.CreateShareLink(ctx, link))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int64
		)
		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := db.ConsumeView(ctx, link.ID, time.Now())
				if err != nil {
					t.Errorf("ConsumeView() error = %v", err)
					return
				}
				if ok {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, maxViews, successes)
	})

	t.Run("presence window", func(t *testing.T) {
		t0 := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
		_, err := db.TouchSession(ctx, s.ID, ada.ID, t0)
		require.NoError(t, err)

		active, err := db.ListActiveSessions(ctx, s.ID, t0)
		require.NoError(t, err)
		assert.Len(t, active, 1)

		active, err = db.ListActiveSessions(ctx, s.ID, t0.Add(time.Microsecond))
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}
