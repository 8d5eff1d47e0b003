package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// snippetSelect yields the stored columns plus the two derived ones. The
// single placeholder is the viewer id used for is_favorite.
const snippetSelect = `
	SELECT s.id, s.title, s.description, s.content, s.language,
	       s.category_id, s.collection_id, s.user_id, s.is_public, s.tags,
	       s.views_count, s.created_at, s.updated_at,
	       (SELECT COUNT(*) FROM favorites f WHERE f.snippet_id = s.id) AS favorites_count,
	       EXISTS (SELECT 1 FROM favorites f WHERE f.snippet_id = s.id AND f.user_id = ?) AS is_favorite
	FROM snippets s`

// sortColumns whitelists ORDER BY targets; user input never reaches the SQL.
var sortColumns = map[repository.SnippetSort]string{
	repository.SortCreatedAt:      "s.created_at",
	repository.SortUpdatedAt:      "s.updated_at",
	repository.SortTitle:          "LOWER(s.title)",
	repository.SortLanguage:       "s.language",
	repository.SortFavoritesCount: "favorites_count",
}

func scanSnippet(row interface{ Scan(...any) error }) (*model.Snippet, error) {
	var (
		s            model.Snippet
		categoryID   sql.NullString
		collectionID sql.NullString
		tags         string
	)
	if err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.Content, &s.Language,
		&categoryID, &collectionID, &s.UserID, &s.IsPublic, &tags,
		&s.ViewsCount, &s.CreatedAt, &s.UpdatedAt,
		&s.FavoritesCount, &s.IsFavorite,
	); err != nil {
		return nil, err
	}
	s.CategoryID = stringPtr(categoryID)
	s.CollectionID = stringPtr(collectionID)
	var err error
	if s.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("decoding tags of snippet %s: %w", s.ID, err)
	}
	return &s, nil
}

// Tags are stored as a JSON array in a TEXT column on both dialects.
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	tags, err := encodeTags(snippet.Tags)
	if err != nil {
		return fmt.Errorf("sqlstore: encoding tags: %w", err)
	}

	snippet.ID = xid.New().String()
	snippet.CreatedAt = now()
	snippet.UpdatedAt = snippet.CreatedAt
	if snippet.Tags == nil {
		snippet.Tags = []string{}
	}

	_, err = db.exec(ctx,
		`INSERT INTO snippets (id, title, description, content, language, category_id,
		                       collection_id, user_id, is_public, tags, views_count,
		                       created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		snippet.ID, snippet.Title, snippet.Description, snippet.Content, snippet.Language,
		nullString(snippet.CategoryID), nullString(snippet.CollectionID), snippet.UserID,
		snippet.IsPublic, tags, snippet.CreatedAt, snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating snippet: %w", err)
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, id, viewerID string) (*model.Snippet, error) {
	s, err := scanSnippet(db.queryRow(ctx, snippetSelect+` WHERE s.id = ?`, viewerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlstore: getting snippet %s: %w", id, err)
	}
	return s, nil
}

// List builds the WHERE clause from whichever filter fields are set.
//
// Query matches title, description and content case-insensitively. Tag
// matches one element of the JSON tags array exactly.
func (db *DB) List(ctx context.Context, f repository.SnippetFilter) ([]model.Snippet, error) {
	var (
		where []string
		args  = []any{f.ViewerID}
	)

	if !f.Unrestricted {
		where = append(where, "(s.user_id = ? OR s.is_public = ?)")
		args = append(args, f.ViewerID, true)
	}
	if f.OwnerID != "" {
		where = append(where, "s.user_id = ?")
		args = append(args, f.OwnerID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(s.title) LIKE ? OR LOWER(s.description) LIKE ? OR LOWER(s.content) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if f.Language != "" {
		where = append(where, "s.language = ?")
		args = append(args, f.Language)
	}
	if f.Tag != "" {
		tag, err := json.Marshal(f.Tag)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: encoding tag filter: %w", err)
		}
		where = append(where, "s.tags LIKE ?")
		args = append(args, "%"+string(tag)+"%")
	}
	if f.CategoryID != "" {
		where = append(where, "s.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.CollectionID != "" {
		where = append(where, "s.collection_id = ?")
		args = append(args, f.CollectionID)
	}

	order, ok := sortColumns[f.SortBy]
	if !ok {
		order = sortColumns[repository.SortCreatedAt]
	}
	direction := "DESC"
	if f.Ascending {
		direction = "ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := max(f.Offset, 0)

	var b strings.Builder
	b.WriteString(snippetSelect)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	// s.id breaks ties so paging is stable.
	fmt.Fprintf(&b, " ORDER BY %s %s, s.id %s LIMIT ? OFFSET ?", order, direction, direction)
	args = append(args, limit, offset)

	rows, err := db.query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, limit)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating snippets: %w", err)
	}
	return snippets, nil
}

func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	tags, err := encodeTags(snippet.Tags)
	if err != nil {
		return fmt.Errorf("sqlstore: encoding tags: %w", err)
	}
	snippet.UpdatedAt = now()

	res, err := db.exec(ctx,
		`UPDATE snippets
		 SET title = ?, description = ?, content = ?, language = ?, category_id = ?,
		     collection_id = ?, is_public = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Title, snippet.Description, snippet.Content, snippet.Language,
		nullString(snippet.CategoryID), nullString(snippet.CollectionID),
		snippet.IsPublic, tags, snippet.UpdatedAt, snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating snippet %s: %w", snippet.ID, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	return nil
}

// Delete removes the snippet. Favorites, share links and collaboration
// sessions pointing at it go with it (ON DELETE CASCADE).
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.exec(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting snippet %s: %w", id, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

func (db *DB) IncrementViews(ctx context.Context, id string) error {
	if _, err := db.exec(ctx,
		`UPDATE snippets SET views_count = views_count + 1 WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("sqlstore: incrementing views of snippet %s: %w", id, err)
	}
	return nil
}
