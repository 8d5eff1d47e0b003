// Package service contains the business logic between the HTTP handlers and
// the repositories: validation, ownership checks and logging of domain
// events. Services never see an http.Request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

const (
	MaxSnippetTitleLength = 200
	MaxDescriptionLength  = 2000
	MaxContentLength      = 100000 // ~100KB of code
	MaxLanguageLength     = 50
	MaxTags               = 20
	MaxTagLength          = 50
	DefaultListLimit      = 20
	MaxListLimit          = 100
)

// SnippetInput is the full set of writable snippet fields.
type SnippetInput struct {
	Title        string
	Description  string
	Content      string
	Language     string
	CategoryID   *string
	CollectionID *string
	IsPublic     bool
	Tags         []string
}

// SnippetPatch updates only the fields that are non-nil. An empty
// CategoryID or CollectionID clears the reference.
type SnippetPatch struct {
	Title        *string
	Description  *string
	Content      *string
	Language     *string
	CategoryID   *string
	CollectionID *string
	IsPublic     *bool
	Tags         *[]string
}

// ListSnippetsParams mirrors the query string of GET /api/snippets.
type ListSnippetsParams struct {
	Query        string
	Language     string
	Tag          string
	CategoryID   string
	CollectionID string
	SortBy       string
	Order        string
	Limit        int
	Offset       int
}

type SnippetService struct {
	repo        repository.SnippetRepository
	categories  repository.CategoryRepository
	collections repository.CollectionRepository
	logger      *slog.Logger
}

func NewSnippetService(
	repo repository.SnippetRepository,
	categories repository.CategoryRepository,
	collections repository.CollectionRepository,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		repo:        repo,
		categories:  categories,
		collections: collections,
		logger:      logger,
	}
}

func (s *SnippetService) Create(ctx context.Context, ownerID string, in SnippetInput) (*model.Snippet, error) {
	snippet := &model.Snippet{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Content:      in.Content,
		Language:     strings.ToLower(strings.TrimSpace(in.Language)),
		CategoryID:   trimmedRef(in.CategoryID),
		CollectionID: trimmedRef(in.CollectionID),
		UserID:       ownerID,
		IsPublic:     in.IsPublic,
		Tags:         normalizeTags(in.Tags),
	}
	if err := s.validate(ctx, snippet); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("title", snippet.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("userID", ownerID),
	)
	return snippet, nil
}

// Get returns a snippet the viewer may see: their own or a public one.
// Private snippets of other users look exactly like missing ones. A view by
// anyone other than the owner bumps views_count.
func (s *SnippetService) Get(ctx context.Context, viewerID, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if !snippet.IsPublic && snippet.UserID != viewerID {
		return nil, apperror.NotFound("snippet", id)
	}

	if snippet.UserID != viewerID {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			// A lost view count is not worth failing the read.
			s.logger.Warn("failed to count snippet view",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		} else {
			snippet.ViewsCount++
		}
	}
	return snippet, nil
}

func (s *SnippetService) List(ctx context.Context, viewerID string, p ListSnippetsParams) ([]model.Snippet, error) {
	filter := repository.SnippetFilter{
		ViewerID:     viewerID,
		Query:        strings.TrimSpace(p.Query),
		Language:     strings.ToLower(strings.TrimSpace(p.Language)),
		Tag:          strings.TrimSpace(p.Tag),
		CategoryID:   strings.TrimSpace(p.CategoryID),
		CollectionID: strings.TrimSpace(p.CollectionID),
		SortBy:       repository.SortUpdatedAt,
	}

	if p.SortBy != "" {
		sort := repository.SnippetSort(p.SortBy)
		switch sort {
		case repository.SortCreatedAt, repository.SortUpdatedAt, repository.SortTitle,
			repository.SortLanguage, repository.SortFavoritesCount:
			filter.SortBy = sort
		default:
			return nil, apperror.ValidationFailed("sortBy",
				"sortBy must be one of created_at, updated_at, title, language, favorites_count")
		}
	}

	switch strings.ToLower(p.Order) {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		return nil, apperror.ValidationFailed("order", "order must be asc or desc")
	}

	filter.Limit = p.Limit
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	filter.Offset = max(p.Offset, 0)

	snippets, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

func (s *SnippetService) Update(ctx context.Context, ownerID, id string, patch SnippetPatch) (*model.Snippet, error) {
	snippet, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		snippet.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		snippet.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Content != nil {
		snippet.Content = *patch.Content
	}
	if patch.Language != nil {
		snippet.Language = strings.ToLower(strings.TrimSpace(*patch.Language))
	}
	if patch.CategoryID != nil {
		snippet.CategoryID = trimmedRef(patch.CategoryID)
	}
	if patch.CollectionID != nil {
		snippet.CollectionID = trimmedRef(patch.CollectionID)
	}
	if patch.IsPublic != nil {
		snippet.IsPublic = *patch.IsPublic
	}
	if patch.Tags != nil {
		snippet.Tags = normalizeTags(*patch.Tags)
	}

	if err := s.validate(ctx, snippet); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", id))
	return snippet, nil
}

func (s *SnippetService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// owned loads a snippet for modification. Someone else's private snippet is
// NotFound; someone else's public snippet is Forbidden.
func (s *SnippetService) owned(ctx context.Context, ownerID, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if snippet.UserID != ownerID {
		if !snippet.IsPublic {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, apperror.Forbidden("you can only modify your own snippets")
	}
	return snippet, nil
}

func (s *SnippetService) validate(ctx context.Context, snippet *model.Snippet) error {
	switch {
	case snippet.Title == "":
		return apperror.ValidationFailed("title", "snippet title is required")
	case utf8.RuneCountInString(snippet.Title) > MaxSnippetTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("snippet title must be %d characters or less", MaxSnippetTitleLength))
	case utf8.RuneCountInString(snippet.Description) > MaxDescriptionLength:
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	case len(snippet.Content) > MaxContentLength:
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d bytes or less", MaxContentLength))
	case snippet.Language == "":
		return apperror.ValidationFailed("language", "language is required")
	case len(snippet.Language) > MaxLanguageLength:
		return apperror.ValidationFailed("language",
			fmt.Sprintf("language must be %d characters or less", MaxLanguageLength))
	case len(snippet.Tags) > MaxTags:
		return apperror.ValidationFailed("tags", fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	for _, tag := range snippet.Tags {
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return apperror.ValidationFailed("tags",
				fmt.Sprintf("tags must be %d characters or less", MaxTagLength))
		}
	}

	if snippet.CategoryID != nil {
		c, err := s.categories.GetCategoryByID(ctx, *snippet.CategoryID)
		if err := referenceCheck(err, c != nil && c.UserID == snippet.UserID, "categoryId", "category"); err != nil {
			return err
		}
	}
	if snippet.CollectionID != nil {
		c, err := s.collections.GetCollectionByID(ctx, *snippet.CollectionID)
		if err := referenceCheck(err, c != nil && c.UserID == snippet.UserID, "collectionId", "collection"); err != nil {
			return err
		}
	}
	return nil
}

// referenceCheck turns a missing or foreign category/collection into a
// validation error on field.
func referenceCheck(lookupErr error, owned bool, field, resource string) error {
	if lookupErr != nil && !errors.Is(lookupErr, apperror.ErrNotFound) {
		return fmt.Errorf("checking %s: %w", resource, lookupErr)
	}
	if lookupErr != nil || !owned {
		return apperror.ValidationFailed(field, resource+" not found")
	}
	return nil
}

func trimmedRef(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// normalizeTags trims, lowercases and de-duplicates, keeping first-seen
// order. Empty tags are dropped.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
