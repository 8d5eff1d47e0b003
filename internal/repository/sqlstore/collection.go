package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

var _ repository.CollectionRepository = (*DB)(nil)

const collectionSelect = `
	SELECT c.id, c.name, c.description, c.is_public, c.user_id, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM snippets s WHERE s.collection_id = c.id) AS snippets_count
	FROM collections c`

func scanCollection(row interface{ Scan(...any) error }) (*model.Collection, error) {
	var c model.Collection
	if err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.IsPublic, &c.UserID,
		&c.CreatedAt, &c.UpdatedAt, &c.SnippetsCount,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) CreateCollection(ctx context.Context, c *model.Collection) error {
	c.ID = xid.New().String()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	_, err := db.exec(ctx,
		`INSERT INTO collections (id, name, description, is_public, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.IsPublic, c.UserID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating collection: %w", err)
	}
	return nil
}

// GetCollectionByID returns the collection without its snippets; callers
// that need them list snippets filtered by CollectionID.
func (db *DB) GetCollectionByID(ctx context.Context, id string) (*model.Collection, error) {
	c, err := scanCollection(db.queryRow(ctx, collectionSelect+` WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("collection", id)
		}
		return nil, fmt.Errorf("sqlstore: getting collection %s: %w", id, err)
	}
	return c, nil
}

func (db *DB) ListCollections(ctx context.Context, ownerID string) ([]model.Collection, error) {
	rows, err := db.query(ctx,
		collectionSelect+` WHERE c.user_id = ? ORDER BY c.created_at DESC, c.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing collections: %w", err)
	}
	defer rows.Close()

	collections := []model.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning collection row: %w", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating collections: %w", err)
	}
	return collections, nil
}

func (db *DB) UpdateCollection(ctx context.Context, c *model.Collection) error {
	c.UpdatedAt = now()

	res, err := db.exec(ctx,
		`UPDATE collections SET name = ?, description = ?, is_public = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.IsPublic, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating collection %s: %w", c.ID, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("collection", c.ID)
	}
	return nil
}

// DeleteCollection removes the collection. Member snippets survive with
// collection_id cleared; share links to the collection are deleted.
func (db *DB) DeleteCollection(ctx context.Context, id string) error {
	res, err := db.exec(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting collection %s: %w", id, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("collection", id)
	}
	return nil
}
