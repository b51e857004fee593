package models

import "time"

type SavedRecipe struct {
	UserID   string    `json:"user_id"`
	RecipeID string    `json:"recipe_id"`
	SavedAt  time.Time `json:"saved_at"`
	Recipe   *Recipe   `json:"recipe,omitempty"`
}
