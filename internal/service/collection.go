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

const MaxCollectionNameLength = 100

type CollectionInput struct {
	Name        string
	Description string
	IsPublic    bool
}

type CollectionService struct {
	repo     repository.CollectionRepository
	snippets repository.SnippetRepository
	logger   *slog.Logger
}

func NewCollectionService(
	repo repository.CollectionRepository,
	snippets repository.SnippetRepository,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{repo: repo, snippets: snippets, logger: logger}
}

func (s *CollectionService) Create(ctx context.Context, ownerID string, in CollectionInput) (*model.Collection, error) {
	c := &model.Collection{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		IsPublic:    in.IsPublic,
		UserID:      ownerID,
	}
	if err := validateCollection(c); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCollection(ctx, c); err != nil {
		s.logger.Error("failed to create collection", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	s.logger.Info("collection created", slog.String("id", c.ID), slog.String("userID", ownerID))
	return c, nil
}

func (s *CollectionService) List(ctx context.Context, ownerID string) ([]model.Collection, error) {
	collections, err := s.repo.ListCollections(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list collections", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return collections, nil
}

// Get returns the collection with the member snippets the viewer can see.
// The owner sees all of them; visitors of a public collection see the
// public members and their own.
func (s *CollectionService) Get(ctx context.Context, viewerID, id string) (*model.Collection, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "collection ID is required")
	}

	c, err := s.repo.GetCollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isOwner := c.UserID == viewerID
	if !c.IsPublic && !isOwner {
		return nil, apperror.NotFound("collection", id)
	}

	snippets, err := s.snippets.List(ctx, repository.SnippetFilter{
		ViewerID:     viewerID,
		Unrestricted: isOwner,
		CollectionID: id,
		SortBy:       repository.SortUpdatedAt,
		ListOptions:  repository.ListOptions{Limit: MaxListLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("listing collection snippets: %w", err)
	}
	c.Snippets = snippets
	return c, nil
}

func (s *CollectionService) Update(ctx context.Context, ownerID, id string, in CollectionInput) (*model.Collection, error) {
	c, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Description = strings.TrimSpace(in.Description)
	c.IsPublic = in.IsPublic
	if err := validateCollection(c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("updating collection: %w", err)
	}
	return c, nil
}

// Delete removes the collection. Its snippets stay, detached.
func (s *CollectionService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCollection(ctx, id); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	s.logger.Info("collection deleted", slog.String("id", id))
	return nil
}

func (s *CollectionService) owned(ctx context.Context, ownerID, id string) (*model.Collection, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "collection ID is required")
	}
	c, err := s.repo.GetCollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != ownerID {
		if !c.IsPublic {
			return nil, apperror.NotFound("collection", id)
		}
		return nil, apperror.Forbidden("you can only modify your own collections")
	}
	return c, nil
}

func validateCollection(c *model.Collection) error {
	if c.Name == "" {
		return apperror.ValidationFailed("name", "collection name is required")
	}
	if utf8.RuneCountInString(c.Name) > MaxCollectionNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("collection name must be %d characters or less", MaxCollectionNameLength))
	}
	if utf8.RuneCountInString(c.Description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}
