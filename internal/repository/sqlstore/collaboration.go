package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

var _ repository.CollaborationRepository = (*DB)(nil)

const sessionSelect = `
	SELECT cs.id, cs.snippet_id, cs.user_id, cs.cursor_position, cs.last_active,
	       p.id, p.username, p.avatar_url
	FROM collaboration_sessions cs
	JOIN profiles p ON p.id = cs.user_id`

func scanSession(row interface{ Scan(...any) error }) (*model.CollaborationSession, error) {
	var (
		s    model.CollaborationSession
		user model.ProfileSummary
	)
	if err := row.Scan(
		&s.ID, &s.SnippetID, &s.UserID, &s.CursorPosition, &s.LastActive,
		&user.ID, &user.Username, &user.AvatarURL,
	); err != nil {
		return nil, err
	}
	s.User = &user
	return &s, nil
}

// TouchSession is the join operation. Re-joining refreshes last_active and
// keeps the cursor where it was.
func (db *DB) TouchSession(ctx context.Context, snippetID, userID string, at time.Time) (*model.CollaborationSession, error) {
	at = dbTime(at)
	if _, err := db.exec(ctx,
		`INSERT INTO collaboration_sessions (id, snippet_id, user_id, cursor_position, last_active)
		 VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (snippet_id, user_id) DO UPDATE SET last_active = excluded.last_active`,
		xid.New().String(), snippetID, userID, at,
	); err != nil {
		return nil, fmt.Errorf("sqlstore: upserting collaboration session: %w", err)
	}

	s, err := scanSession(db.queryRow(ctx,
		sessionSelect+` WHERE cs.snippet_id = ? AND cs.user_id = ?`, snippetID, userID))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: reading collaboration session: %w", err)
	}
	return s, nil
}

func (db *DB) UpdateCursor(ctx context.Context, snippetID, userID string, cursor int64, at time.Time) error {
	res, err := db.exec(ctx,
		`UPDATE collaboration_sessions SET cursor_position = ?, last_active = ?
		 WHERE snippet_id = ? AND user_id = ?`,
		cursor, dbTime(at), snippetID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating cursor: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if !ok {
		return apperror.NotFound("collaboration session", snippetID)
	}
	return nil
}

// DeleteSession is a no-op when the user has no session on the snippet.
func (db *DB) DeleteSession(ctx context.Context, snippetID, userID string) error {
	if _, err := db.exec(ctx,
		`DELETE FROM collaboration_sessions WHERE snippet_id = ? AND user_id = ?`, snippetID, userID,
	); err != nil {
		return fmt.Errorf("sqlstore: deleting collaboration session: %w", err)
	}
	return nil
}

func (db *DB) ListActiveSessions(ctx context.Context, snippetID string, since time.Time) ([]model.CollaborationSession, error) {
	rows, err := db.query(ctx,
		sessionSelect+` WHERE cs.snippet_id = ? AND cs.last_active >= ?
		ORDER BY cs.last_active DESC, cs.id DESC`,
		snippetID, dbTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing collaboration sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.CollaborationSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning collaboration session row: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating collaboration sessions: %w", err)
	}
	return sessions, nil
}

func (db *DB) DeleteIdleSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.exec(ctx,
		`DELETE FROM collaboration_sessions WHERE last_active < ?`, dbTime(before))
	if err != nil {
		return 0, fmt.Errorf("sqlstore: deleting idle collaboration sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	return n, nil
}
