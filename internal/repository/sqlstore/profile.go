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

var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, email, username, avatar_url, github_id, password_hash, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var (
		p        model.Profile
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&p.ID, &p.Email, &p.Username, &p.AvatarURL, &githubID,
		&p.PasswordHash, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.GitHubID = intPtr(githubID)
	return &p, nil
}

// CreateProfile inserts a local account. A taken email surfaces as
// apperror.ErrConflict.
func (db *DB) CreateProfile(ctx context.Context, p *model.Profile) error {
	p.ID = xid.New().String()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := db.exec(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.Username, p.AvatarURL, nullInt(p.GitHubID),
		p.PasswordHash, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already registered")
		}
		return fmt.Errorf("sqlstore: creating profile: %w", err)
	}
	return nil
}

func (db *DB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(db.queryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlstore: getting profile %s: %w", id, err)
	}
	return p, nil
}

func (db *DB) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := scanProfile(db.queryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", email)
		}
		return nil, fmt.Errorf("sqlstore: getting profile by email: %w", err)
	}
	return p, nil
}

// UpsertGitHubProfile links a GitHub identity to a profile.
//
// Lookup order: the github_id, then the email (an existing local account gets
// the GitHub id attached), then a fresh insert. On return p holds the stored
// row, including a password hash if the account has one.
func (db *DB) UpsertGitHubProfile(ctx context.Context, p *model.Profile) error {
	if p.GitHubID == nil {
		return fmt.Errorf("sqlstore: upserting github profile: missing github id")
	}

	existing, err := scanProfile(db.queryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE github_id = ?`, *p.GitHubID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlstore: looking up profile by github_id %d: %w", *p.GitHubID, err)
	}

	if existing == nil && p.Email != "" {
		existing, err = scanProfile(db.queryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, p.Email))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlstore: looking up profile by email: %w", err)
		}
	}

	if existing == nil {
		return db.CreateProfile(ctx, p)
	}

	// The GitHub avatar wins; username and email stay as the user set them.
	existing.GitHubID = p.GitHubID
	if p.AvatarURL != "" {
		existing.AvatarURL = p.AvatarURL
	}
	existing.UpdatedAt = now()

	if _, err := db.exec(ctx,
		`UPDATE profiles SET github_id = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		nullInt(existing.GitHubID), existing.AvatarURL, existing.UpdatedAt, existing.ID,
	); err != nil {
		return fmt.Errorf("sqlstore: updating profile %s: %w", existing.ID, err)
	}

	*p = *existing
	return nil
}

// UpdateProfile writes the editable fields: username, avatar_url and
// password_hash.
func (db *DB) UpdateProfile(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = now()

	res, err := db.exec(ctx,
		`UPDATE profiles SET username = ?, avatar_url = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		p.Username, p.AvatarURL, p.PasswordHash, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating profile %s: %w", p.ID, err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("profile", p.ID)
	}
	return nil
}
