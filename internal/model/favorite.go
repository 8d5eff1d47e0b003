package model

import "time"

type Favorite struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	SnippetID string           `json:"snippetId"`
	Snippet   *FavoriteSnippet `json:"snippet,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// FavoriteSnippet is the snippet projection shown in a favorites listing.
type FavoriteSnippet struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Language    string   `json:"language"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
