// Package model defines the records exchanged between the repository,
// service and handler layers.
package model

import "time"

// Snippet is a saved piece of code owned by a single profile.
//
// FavoritesCount and IsFavorite are derived at read time: the first from the
// favorites table, the second for the profile doing the reading.
type Snippet struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Content        string    `json:"content"`
	Language       string    `json:"language"`
	CategoryID     *string   `json:"categoryId"`
	CollectionID   *string   `json:"collectionId"`
	UserID         string    `json:"userId"`
	IsPublic       bool      `json:"isPublic"`
	Tags           []string  `json:"tags"`
	ViewsCount     int64     `json:"viewsCount"`
	FavoritesCount int64     `json:"favoritesCount"`
	IsFavorite     bool      `json:"isFavorite"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SnippetRef is the minimal projection of a snippet used by listings of
// other records.
type SnippetRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
