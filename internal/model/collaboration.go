package model

import "time"

// CollaborationSession records that a profile is viewing a snippet. There is
// at most one row per (SnippetID, UserID); it counts as live while LastActive
// is within the liveness window.
type CollaborationSession struct {
	ID             string          `json:"id"`
	SnippetID      string          `json:"snippetId"`
	UserID         string          `json:"userId"`
	CursorPosition int64           `json:"cursorPosition"`
	LastActive     time.Time       `json:"lastActive"`
	User           *ProfileSummary `json:"user,omitempty"`
}
