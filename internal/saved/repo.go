package saved

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"recipehub/internal/recipe"
	"recipehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Add saves a recipe for the user. It reports false when it was already saved.
func (r *Repo) Add(ctx context.Context, userID, recipeID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO saved_recipes (user_id, recipe_id, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, recipe_id) DO NOTHING
	`, userID, recipeID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add saved recipe: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Remove(ctx context.Context, userID, recipeID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM saved_recipes
		WHERE user_id = ? AND recipe_id = ?
	`, userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("remove saved recipe: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns the user's saved recipes, newest first, with recipe payloads.
func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.SavedRecipe, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM saved_recipes WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count saved: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+recipe.Columns+`, s.saved_at
		FROM saved_recipes s
		JOIN recipes ON recipes.id = s.recipe_id
		WHERE s.user_id = ?
		ORDER BY s.saved_at DESC, recipes.id ASC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list saved: %w", err)
	}
	defer rows.Close()

	out := make([]models.SavedRecipe, 0, limit)
	for rows.Next() {
		var savedAt time.Time
		rec, err := recipe.ScanRecipe(rows, &savedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan saved row: %w", err)
		}
		out = append(out, models.SavedRecipe{
			UserID:   userID,
			RecipeID: rec.ID,
			SavedAt:  savedAt,
			Recipe:   &rec,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}
