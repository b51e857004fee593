package sync

import "time"

const (
	EventSaved   = "saved.add"
	EventUnsaved = "saved.remove"
)

// SavedEvent is pushed to a user's websocket connections when their saved
// list changes.
type SavedEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	RecipeID string    `json:"recipe_id"`
	Name     string    `json:"name,omitempty"`
	At       time.Time `json:"at"`
}
