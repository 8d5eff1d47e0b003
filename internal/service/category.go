package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

const MaxCategoryNameLength = 50

type CategoryInput struct {
	Name  string
	Color string
	Icon  string
}

// CategoryService manages a profile's private categories. Categories of
// other users are invisible: every lookup of a foreign id is NotFound.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, ownerID string, in CategoryInput) (*model.Category, error) {
	c := &model.Category{
		Name:   strings.TrimSpace(in.Name),
		Color:  strings.TrimSpace(in.Color),
		Icon:   strings.TrimSpace(in.Icon),
		UserID: ownerID,
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	s.logger.Info("category created", slog.String("id", c.ID), slog.String("userID", ownerID))
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, ownerID, id string, in CategoryInput) (*model.Category, error) {
	c, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Color = strings.TrimSpace(in.Color)
	c.Icon = strings.TrimSpace(in.Icon)
	if err := validateCategory(c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	s.logger.Info("category deleted", slog.String("id", id))
	return nil
}

func (s *CategoryService) owned(ctx context.Context, ownerID, id string) (*model.Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "category ID is required")
	}
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != ownerID {
		return nil, apperror.NotFound("category", id)
	}
	return c, nil
}

func validateCategory(c *model.Category) error {
	if c.Name == "" {
		return apperror.ValidationFailed("name", "category name is required")
	}
	if utf8.RuneCountInString(c.Name) > MaxCategoryNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}
	return nil
}
