package model

import "time"

// ShareLink grants unauthenticated access to exactly one snippet or
// collection to whoever holds Token.
//
// Exactly one of SnippetID and CollectionID is set. ExpiresAt and MaxViews
// are optional caps; CurrentViews never exceeds MaxViews.
type ShareLink struct {
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	SnippetID    *string        `json:"snippetId"`
	CollectionID *string        `json:"collectionId"`
	ExpiresAt    *time.Time     `json:"expiresAt"`
	MaxViews     *int64         `json:"maxViews"`
	CurrentViews int64          `json:"currentViews"`
	UserID       string         `json:"userId"`
	Snippet      *SnippetRef    `json:"snippet,omitempty"`
	Collection   *CollectionRef `json:"collection,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// SharedContentType discriminates the payload of a resolved share link.
type SharedContentType string

const (
	SharedSnippet    SharedContentType = "snippet"
	SharedCollection SharedContentType = "collection"
)

// SharedContent is what a public share link resolves to.
type SharedContent struct {
	Type       SharedContentType `json:"type"`
	Snippet    *Snippet          `json:"-"`
	Collection *Collection       `json:"-"`
}

// Content returns whichever payload is set, for serialization.
func (c *SharedContent) Content() any {
	if c.Type == SharedSnippet {
		return c.Snippet
	}
	return c.Collection
}
