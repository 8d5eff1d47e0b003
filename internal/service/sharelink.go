package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// IssueRequest names the target of a new share link and its optional caps.
// Exactly one of SnippetID and CollectionID must be set.
type IssueRequest struct {
	SnippetID    string
	CollectionID string
	ExpiresIn    *int64 // seconds from now; 0 means already expired
	MaxViews     *int64
}

// ShareLinkService issues, lists, revokes and resolves share links.
//
// Resolution is public: anyone holding the token gets the content, subject to
// the link's expiry and view cap. Every other operation is scoped to the
// owning profile.
type ShareLinkService struct {
	links       repository.ShareLinkRepository
	snippets    repository.SnippetRepository
	collections repository.CollectionRepository
	baseURL     string
	logger      *slog.Logger

	random io.Reader
	now    func() time.Time
}

// NewShareLinkService builds public URLs as {baseURL}/share/{token}.
func NewShareLinkService(
	links repository.ShareLinkRepository,
	snippets repository.SnippetRepository,
	collections repository.CollectionRepository,
	baseURL string,
	logger *slog.Logger,
) *ShareLinkService {
	return &ShareLinkService{
		links:       links,
		snippets:    snippets,
		collections: collections,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
		random:      rand.Reader,
		now:         time.Now,
	}
}

// URL is the public address of a token.
func (s *ShareLinkService) URL(token string) string {
	return s.baseURL + "/share/" + token
}

// Issue creates a link to a snippet or collection owned by ownerID.
//
// A target that does not exist and a target owned by someone else produce the
// same Forbidden error, so the endpoint cannot be used to probe for ids.
func (s *ShareLinkService) Issue(ctx context.Context, ownerID string, req IssueRequest) (*model.ShareLink, string, error) {
	snippetID := strings.TrimSpace(req.SnippetID)
	collectionID := strings.TrimSpace(req.CollectionID)

	if (snippetID == "") == (collectionID == "") {
		return nil, "", apperror.ValidationFailed("snippetId",
			"exactly one of snippetId or collectionId is required")
	}
	if req.ExpiresIn != nil && *req.ExpiresIn < 0 {
		return nil, "", apperror.ValidationFailed("expiresIn", "expiresIn must not be negative")
	}
	if req.MaxViews != nil && *req.MaxViews < 1 {
		return nil, "", apperror.ValidationFailed("maxViews", "maxViews must be at least 1")
	}

	link := &model.ShareLink{UserID: ownerID, MaxViews: req.MaxViews}

	if snippetID != "" {
		snippet, err := s.snippets.GetByID(ctx, snippetID, ownerID)
		if err := ownedTarget(err, snippet != nil && snippet.UserID == ownerID); err != nil {
			return nil, "", fmt.Errorf("issuing share link: %w", err)
		}
		link.SnippetID = &snippet.ID
		link.Snippet = &model.SnippetRef{ID: snippet.ID, Title: snippet.Title}
	} else {
		collection, err := s.collections.GetCollectionByID(ctx, collectionID)
		if err := ownedTarget(err, collection != nil && collection.UserID == ownerID); err != nil {
			return nil, "", fmt.Errorf("issuing share link: %w", err)
		}
		link.CollectionID = &collection.ID
		link.Collection = &model.CollectionRef{ID: collection.ID, Name: collection.Name}
	}

	token, err := generateToken(s.random)
	if err != nil {
		return nil, "", fmt.Errorf("issuing share link: %w", err)
	}
	link.Token = token

	now := s.now()
	link.CreatedAt = now
	if req.ExpiresIn != nil {
		expiresAt := now.Add(time.Duration(*req.ExpiresIn) * time.Second)
		link.ExpiresAt = &expiresAt
	}

	if err := s.links.CreateShareLink(ctx, link); err != nil {
		s.logger.Error("failed to create share link",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, "", fmt.Errorf("issuing share link: %w", err)
	}

	s.logger.Info("share link issued",
		slog.String("id", link.ID),
		slog.String("userID", ownerID),
		slog.Bool("collection", link.CollectionID != nil),
	)

	return link, s.URL(link.Token), nil
}

// ownedTarget folds a lookup result into the Issue access decision.
func ownedTarget(lookupErr error, owned bool) error {
	if lookupErr != nil && !errors.Is(lookupErr, apperror.ErrNotFound) {
		return lookupErr
	}
	if lookupErr != nil || !owned {
		return apperror.Forbidden("you can only share snippets and collections you own")
	}
	return nil
}

func (s *ShareLinkService) List(ctx context.Context, ownerID string) ([]model.ShareLink, error) {
	links, err := s.links.ListShareLinks(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list share links", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing share links: %w", err)
	}
	return links, nil
}

// Revoke deletes the link if ownerID owns it. An unknown id, or one that
// belongs to somebody else, succeeds without doing anything.
func (s *ShareLinkService) Revoke(ctx context.Context, ownerID, linkID string) error {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return apperror.ValidationFailed("linkId", "linkId is required")
	}

	if err := s.links.DeleteShareLink(ctx, linkID, ownerID); err != nil {
		s.logger.Error("failed to revoke share link",
			slog.String("id", linkID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("revoking share link: %w", err)
	}

	s.logger.Info("share link revoke requested",
		slog.String("id", linkID),
		slog.String("userID", ownerID),
	)
	return nil
}

// Resolve returns the content behind token and counts one view.
//
// Checks run in a fixed order: unknown token (NotFound), expiry (Expired),
// view cap (LimitReached). The increment itself re-checks both caps in the
// store, so a resolver that loses a race for the last view gets LimitReached
// instead of overshooting max_views.
func (s *ShareLinkService) Resolve(ctx context.Context, token string) (*model.SharedContent, error) {
	if !wellFormedToken(token) {
		return nil, apperror.NotFound("share link", token)
	}

	link, err := s.links.GetShareLinkByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolving share link: %w", err)
	}

	now := s.now()
	if link.ExpiresAt != nil && !now.Before(*link.ExpiresAt) {
		return nil, apperror.Expired("share link")
	}
	if link.MaxViews != nil && link.CurrentViews >= *link.MaxViews {
		return nil, apperror.LimitReached("share link")
	}

	applied, err := s.links.ConsumeView(ctx, link.ID, now)
	if err != nil {
		s.logger.Error("failed to count share link view",
			slog.String("id", link.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("resolving share link: %w", err)
	}
	if !applied {
		return nil, apperror.LimitReached("share link")
	}

	content, err := s.loadContent(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("resolving share link: %w", err)
	}

	s.logger.Info("share link resolved",
		slog.String("id", link.ID),
		slog.String("type", string(content.Type)),
	)
	return content, nil
}

func (s *ShareLinkService) loadContent(ctx context.Context, link *model.ShareLink) (*model.SharedContent, error) {
	if link.SnippetID != nil {
		snippet, err := s.snippets.GetByID(ctx, *link.SnippetID, "")
		if err != nil {
			return nil, err
		}
		return &model.SharedContent{Type: model.SharedSnippet, Snippet: snippet}, nil
	}

	if link.CollectionID == nil {
		return nil, fmt.Errorf("share link %s has no target", link.ID)
	}

	collection, err := s.collections.GetCollectionByID(ctx, *link.CollectionID)
	if err != nil {
		return nil, err
	}
	// The token grants the whole collection, private members included.
	snippets, err := s.snippets.List(ctx, repository.SnippetFilter{
		Unrestricted: true,
		CollectionID: collection.ID,
		SortBy:       repository.SortUpdatedAt,
		ListOptions:  repository.ListOptions{Limit: MaxListLimit},
	})
	if err != nil {
		return nil, err
	}
	collection.Snippets = snippets
	return &model.SharedContent{Type: model.SharedCollection, Collection: collection}, nil
}
