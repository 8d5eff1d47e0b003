package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

type FavoriteService struct {
	repo     repository.FavoriteRepository
	snippets repository.SnippetRepository
	logger   *slog.Logger
}

func NewFavoriteService(repo repository.FavoriteRepository, snippets repository.SnippetRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{repo: repo, snippets: snippets, logger: logger}
}

func (s *FavoriteService) List(ctx context.Context, userID string) ([]model.Favorite, error) {
	favorites, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list favorites", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return favorites, nil
}

// Add favorites a snippet the user can see. Adding twice returns the
// existing favorite.
func (s *FavoriteService) Add(ctx context.Context, userID, snippetID string) (*model.Favorite, error) {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperror.ValidationFailed("snippetId", "snippetId is required")
	}

	snippet, err := s.snippets.GetByID(ctx, snippetID, userID)
	if err != nil {
		return nil, err
	}
	if !snippet.IsPublic && snippet.UserID != userID {
		return nil, apperror.NotFound("snippet", snippetID)
	}

	f, err := s.repo.AddFavorite(ctx, userID, snippetID)
	if err != nil {
		s.logger.Error("failed to add favorite",
			slog.String("snippetID", snippetID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding favorite: %w", err)
	}
	return f, nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, snippetID string) error {
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return apperror.ValidationFailed("snippetId", "snippetId is required")
	}
	if err := s.repo.RemoveFavorite(ctx, userID, snippetID); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}
