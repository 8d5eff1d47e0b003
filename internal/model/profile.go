package model

import "time"

// Profile is a registered account. A profile is created either by local
// email/password registration or on the first GitHub login.
//
// GitHubID is nil for local accounts and PasswordHash is empty for GitHub-only
// accounts. PasswordHash never leaves the server.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	AvatarURL    string    `json:"avatarUrl"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileSummary is the public projection of a profile embedded in other
// records (collaboration sessions, snippet authors).
type ProfileSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}
