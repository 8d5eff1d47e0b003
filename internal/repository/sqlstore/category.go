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

var _ repository.CategoryRepository = (*DB)(nil)

const categoryColumns = `id, name, color, icon, user_id, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts c. Category names are unique per owner.
func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	c.ID = xid.New().String()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	_, err := db.exec(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.Icon, c.UserID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("category %q already exists", c.Name))
		}
		return fmt.Errorf("sqlstore: creating category: %w", err)
	}
	return nil
}

func (db *DB) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	c, err := scanCategory(db.queryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlstore: getting category %s: %w", id, err)
	}
	return c, nil
}

func (db *DB) ListCategories(ctx context.Context, ownerID string) ([]model.Category, error) {
	rows, err := db.query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating categories: %w", err)
	}
	return categories, nil
}

func (db *DB) UpdateCategory(ctx context.Context, c *model.Category) error {
	c.UpdatedAt = now()

	res, err := db.exec(ctx,
		`UPDATE categories SET name = ?, color = ?, icon = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Color, c.Icon, c.UpdatedAt, c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("category %q already exists", c.Name))
		}
		return fmt.Errorf("sqlstore: updating category %s: %w", c.ID, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("category", c.ID)
	}
	return nil
}

// DeleteCategory removes the category; its snippets keep existing with
// category_id cleared.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	res, err := db.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting category %s: %w", id, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("category", id)
	}
	return nil
}
