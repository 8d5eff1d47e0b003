// Package repository declares the persistence interfaces the service layer
// depends on. Implementations live in subpackages (see repository/sqlstore).
package repository

import (
	"context"
	"time"

	"github.com/sakif/snippet-vault/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// SnippetSort names the columns a snippet listing may be ordered by.
type SnippetSort string

const (
	SortCreatedAt      SnippetSort = "created_at"
	SortUpdatedAt      SnippetSort = "updated_at"
	SortTitle          SnippetSort = "title"
	SortLanguage       SnippetSort = "language"
	SortFavoritesCount SnippetSort = "favorites_count"
)

// SnippetFilter narrows a snippet listing.
//
// By default only snippets owned by ViewerID or marked public are returned.
// Unrestricted drops that predicate; it is used when access was already
// granted some other way (a share token).
type SnippetFilter struct {
	ViewerID     string
	Unrestricted bool
	OwnerID      string
	Query        string
	Language     string
	Tag          string
	CategoryID   string
	CollectionID string
	SortBy       SnippetSort
	Ascending    bool
	ListOptions
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	// UpsertGitHubProfile matches on GitHubID, then on Email, and inserts a
	// new profile when neither exists. p is updated in place.
	UpsertGitHubProfile(ctx context.Context, p *model.Profile) error
	UpdateProfile(ctx context.Context, p *model.Profile) error
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	// GetByID ignores visibility; viewerID only drives IsFavorite.
	GetByID(ctx context.Context, id, viewerID string) (*model.Snippet, error)
	List(ctx context.Context, filter SnippetFilter) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context, ownerID string) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type CollectionRepository interface {
	CreateCollection(ctx context.Context, c *model.Collection) error
	GetCollectionByID(ctx context.Context, id string) (*model.Collection, error)
	ListCollections(ctx context.Context, ownerID string) ([]model.Collection, error)
	UpdateCollection(ctx context.Context, c *model.Collection) error
	DeleteCollection(ctx context.Context, id string) error
}

type FavoriteRepository interface {
	// AddFavorite is idempotent: adding an existing pair returns the stored row.
	AddFavorite(ctx context.Context, userID, snippetID string) (*model.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, snippetID string) error
	ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error)
}

type ShareLinkRepository interface {
	CreateShareLink(ctx context.Context, link *model.ShareLink) error
	GetShareLinkByToken(ctx context.Context, token string) (*model.ShareLink, error)
	// ListShareLinks returns the owner's links newest first, with the
	// target's title or name attached.
	ListShareLinks(ctx context.Context, ownerID string) ([]model.ShareLink, error)
	// DeleteShareLink removes the link only if ownerID owns it. Matching
	// nothing is not an error.
	DeleteShareLink(ctx context.Context, id, ownerID string) error
	// ConsumeView increments current_views in a single statement, only while
	// the link is unexpired at now and below max_views. It reports whether
	// the increment applied.
	ConsumeView(ctx context.Context, id string, now time.Time) (bool, error)
}

type CollaborationRepository interface {
	// TouchSession upserts the (snippetID, userID) row with last_active = now,
	// keeping an existing cursor position.
	TouchSession(ctx context.Context, snippetID, userID string, now time.Time) (*model.CollaborationSession, error)
	// UpdateCursor returns apperror.ErrNotFound when no session row exists.
	UpdateCursor(ctx context.Context, snippetID, userID string, cursor int64, now time.Time) error
	DeleteSession(ctx context.Context, snippetID, userID string) error
	// ListActiveSessions returns rows with last_active >= since, most recent first.
	ListActiveSessions(ctx context.Context, snippetID string, since time.Time) ([]model.CollaborationSession, error)
	// DeleteIdleSessions removes rows with last_active < before.
	DeleteIdleSessions(ctx context.Context, before time.Time) (int64, error)
}
