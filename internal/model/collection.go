package model

import "time"

// Collection groups snippets. SnippetsCount is derived; Snippets is only
// populated when a single collection is fetched with its contents.
type Collection struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsPublic      bool      `json:"isPublic"`
	UserID        string    `json:"userId"`
	SnippetsCount int64     `json:"snippetsCount"`
	Snippets      []Snippet `json:"snippets,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CollectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
