package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

var _ repository.ShareLinkRepository = (*DB)(nil)

const shareLinkSelect = `
	SELECT l.id, l.token, l.snippet_id, l.collection_id, l.expires_at, l.max_views,
	       l.current_views, l.user_id, l.created_at, s.title, c.name
	FROM share_links l
	LEFT JOIN snippets s ON s.id = l.snippet_id
	LEFT JOIN collections c ON c.id = l.collection_id`

func scanShareLink(row interface{ Scan(...any) error }) (*model.ShareLink, error) {
	var (
		l            model.ShareLink
		snippetID    sql.NullString
		collectionID sql.NullString
		expiresAt    sql.NullTime
		maxViews     sql.NullInt64
		title        sql.NullString
		name         sql.NullString
	)
	if err := row.Scan(
		&l.ID, &l.Token, &snippetID, &collectionID, &expiresAt, &maxViews,
		&l.CurrentViews, &l.UserID, &l.CreatedAt, &title, &name,
	); err != nil {
		return nil, err
	}
	l.SnippetID = stringPtr(snippetID)
	l.CollectionID = stringPtr(collectionID)
	l.ExpiresAt = timePtr(expiresAt)
	l.MaxViews = intPtr(maxViews)
	if l.SnippetID != nil && title.Valid {
		l.Snippet = &model.SnippetRef{ID: *l.SnippetID, Title: title.String}
	}
	if l.CollectionID != nil && name.Valid {
		l.Collection = &model.CollectionRef{ID: *l.CollectionID, Name: name.String}
	}
	return &l, nil
}

// CreateShareLink inserts link with current_views = 0. A token collision
// surfaces as apperror.ErrConflict so the caller can retry with a new token.
func (db *DB) CreateShareLink(ctx context.Context, link *model.ShareLink) error {
	link.ID = xid.New().String()
	link.CurrentViews = 0
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now()
	}
	link.CreatedAt = dbTime(link.CreatedAt)
	if link.ExpiresAt != nil {
		t := dbTime(*link.ExpiresAt)
		link.ExpiresAt = &t
	}

	_, err := db.exec(ctx,
		`INSERT INTO share_links (id, token, snippet_id, collection_id, expires_at, max_views,
		                          current_views, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		link.ID, link.Token, nullString(link.SnippetID), nullString(link.CollectionID),
		nullTime(link.ExpiresAt), nullInt(link.MaxViews), link.UserID, link.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("share token already in use")
		}
		return fmt.Errorf("sqlstore: creating share link: %w", err)
	}
	return nil
}

func (db *DB) GetShareLinkByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	l, err := scanShareLink(db.queryRow(ctx, shareLinkSelect+` WHERE l.token = ?`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("share link", token)
		}
		return nil, fmt.Errorf("sqlstore: getting share link by token: %w", err)
	}
	return l, nil
}

func (db *DB) ListShareLinks(ctx context.Context, ownerID string) ([]model.ShareLink, error) {
	rows, err := db.query(ctx,
		shareLinkSelect+` WHERE l.user_id = ? ORDER BY l.created_at DESC, l.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing share links: %w", err)
	}
	defer rows.Close()

	links := []model.ShareLink{}
	for rows.Next() {
		l, err := scanShareLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning share link row: %w", err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating share links: %w", err)
	}
	return links, nil
}

func (db *DB) DeleteShareLink(ctx context.Context, id, ownerID string) error {
	if _, err := db.exec(ctx,
		`DELETE FROM share_links WHERE id = ? AND user_id = ?`, id, ownerID,
	); err != nil {
		return fmt.Errorf("sqlstore: deleting share link %s: %w", id, err)
	}
	return nil
}

// ConsumeView is the only writer of current_views. The guard lives in the
// WHERE clause so concurrent resolvers can never push the count past
// max_views: the database serializes the row update and the losers see zero
// rows affected.
func (db *DB) ConsumeView(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.exec(ctx,
		`UPDATE share_links
		 SET current_views = current_views + 1
		 WHERE id = ?
		   AND (max_views IS NULL OR current_views < max_views)
		   AND (expires_at IS NULL OR expires_at > ?)`,
		id, dbTime(at),
	)
	if err != nil {
		return false, fmt.Errorf("sqlstore: consuming view of share link %s: %w", id, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return false, fmt.Errorf("sqlstore: %w", err)
	}
	return ok, nil
}
