package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// LivenessWindow is how recently a session must have been touched to count
// as present.
const LivenessWindow = 30 * time.Second

// CollaborationService tracks who is looking at a snippet and where their
// cursor is. Clients poll ListActive; there is no push channel.
type CollaborationService struct {
	sessions repository.CollaborationRepository
	snippets repository.SnippetRepository
	logger   *slog.Logger

	now func() time.Time
}

func NewCollaborationService(
	sessions repository.CollaborationRepository,
	snippets repository.SnippetRepository,
	logger *slog.Logger,
) *CollaborationService {
	return &CollaborationService{
		sessions: sessions,
		snippets: snippets,
		logger:   logger,
		now:      time.Now,
	}
}

// Join marks userID present on snippetID. The snippet must be public or
// owned by the user. Joining again refreshes the session and keeps the
// cursor where it was.
func (s *CollaborationService) Join(ctx context.Context, snippetID, userID string) (*model.CollaborationSession, error) {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperror.ValidationFailed("snippetId", "snippetId is required")
	}

	snippet, err := s.snippets.GetByID(ctx, snippetID, userID)
	if err != nil {
		return nil, fmt.Errorf("joining session: %w", err)
	}
	if !snippet.IsPublic && snippet.UserID != userID {
		return nil, apperror.Forbidden("you do not have access to this snippet")
	}

	session, err := s.sessions.TouchSession(ctx, snippetID, userID, s.now())
	if err != nil {
		s.logger.Error("failed to join collaboration session",
			slog.String("snippetID", snippetID),
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("joining session: %w", err)
	}

	s.logger.Info("session joined",
		slog.String("snippetID", snippetID),
		slog.String("userID", userID),
	)
	return session, nil
}

// UpdateCursor records a new cursor offset. The user must have joined first;
// a cursor update never creates a session on its own.
func (s *CollaborationService) UpdateCursor(ctx context.Context, snippetID, userID string, cursor int64) error {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return apperror.ValidationFailed("snippetId", "snippetId is required")
	}
	if cursor < 0 {
		return apperror.ValidationFailed("cursorPosition", "cursorPosition must not be negative")
	}

	err := s.sessions.UpdateCursor(ctx, snippetID, userID, cursor, s.now())
	if errors.Is(err, apperror.ErrNotFound) {
		return &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "no collaboration session for this snippet, join the session first",
		}
	}
	if err != nil {
		s.logger.Error("failed to update cursor",
			slog.String("snippetID", snippetID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("updating cursor: %w", err)
	}
	return nil
}

// Leave removes the user's session. Leaving a session that does not exist
// succeeds.
func (s *CollaborationService) Leave(ctx context.Context, snippetID, userID string) error {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return apperror.ValidationFailed("snippetId", "snippetId is required")
	}

	if err := s.sessions.DeleteSession(ctx, snippetID, userID); err != nil {
		s.logger.Error("failed to leave collaboration session",
			slog.String("snippetID", snippetID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("leaving session: %w", err)
	}

	s.logger.Info("session left",
		slog.String("snippetID", snippetID),
		slog.String("userID", userID),
	)
	return nil
}

// ListActive returns the sessions on snippetID touched within the
// LivenessWindow, most recent first. Stale rows are filtered, not deleted.
func (s *CollaborationService) ListActive(ctx context.Context, snippetID string) ([]model.CollaborationSession, error) {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperror.ValidationFailed("snippetId", "snippetId is required")
	}

	sessions, err := s.sessions.ListActiveSessions(ctx, snippetID, s.now().Add(-LivenessWindow))
	if err != nil {
		s.logger.Error("failed to list collaboration sessions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Reap deletes sessions idle for longer than retention. retention may not be
// shorter than the LivenessWindow, or live sessions would disappear.
func (s *CollaborationService) Reap(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < LivenessWindow {
		return 0, apperror.ValidationFailed("retention",
			fmt.Sprintf("retention must be at least %s", LivenessWindow))
	}

	n, err := s.sessions.DeleteIdleSessions(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("reaping sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("idle sessions reaped", slog.Int64("count", n))
	}
	return n, nil
}
