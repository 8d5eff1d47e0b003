package sqlstore

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

var _ repository.FavoriteRepository = (*DB)(nil)

func (db *DB) AddFavorite(ctx context.Context, userID, snippetID string) (*model.Favorite, error) {
	if _, err := db.exec(ctx,
		`INSERT INTO favorites (id, user_id, snippet_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, snippet_id) DO NOTHING`,
		xid.New().String(), userID, snippetID, now(),
	); err != nil {
		return nil, fmt.Errorf("sqlstore: adding favorite: %w", err)
	}

	var f model.Favorite
	if err := db.queryRow(ctx,
		`SELECT id, user_id, snippet_id, created_at FROM favorites WHERE user_id = ? AND snippet_id = ?`,
		userID, snippetID,
	).Scan(&f.ID, &f.UserID, &f.SnippetID, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("sqlstore: reading favorite: %w", err)
	}
	return &f, nil
}

// RemoveFavorite is a no-op when the pair does not exist.
func (db *DB) RemoveFavorite(ctx context.Context, userID, snippetID string) error {
	if _, err := db.exec(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND snippet_id = ?`, userID, snippetID,
	); err != nil {
		return fmt.Errorf("sqlstore: removing favorite: %w", err)
	}
	return nil
}

// ListFavorites returns the user's favorites newest first, each with the
// snippet projection attached.
func (db *DB) ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := db.query(ctx,
		`SELECT f.id, f.user_id, f.snippet_id, f.created_at,
		        s.id, s.title, s.language, s.content, s.description, s.tags
		 FROM favorites f
		 JOIN snippets s ON s.id = f.snippet_id
		 WHERE f.user_id = ?
		 ORDER BY f.created_at DESC, f.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing favorites: %w", err)
	}
	defer rows.Close()

	favorites := []model.Favorite{}
	for rows.Next() {
		var (
			f    model.Favorite
			s    model.FavoriteSnippet
			tags string
		)
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.SnippetID, &f.CreatedAt,
			&s.ID, &s.Title, &s.Language, &s.Content, &s.Description, &tags,
		); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning favorite row: %w", err)
		}
		if s.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("sqlstore: decoding tags of snippet %s: %w", s.ID, err)
		}
		f.Snippet = &s
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating favorites: %w", err)
	}
	return favorites, nil
}
