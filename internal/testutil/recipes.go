package testutil

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"recipehub/pkg/models"
)

// Line is an ingredient line attached to a seeded recipe.
type Line struct {
	Name     string
	Category string
	Text     string
	Quantity float64
	Measure  string
}

// SeedRecipe inserts rec (filling ID, images and created-at when empty)
// together with its ingredient lines and returns the stored recipe.
func SeedRecipe(t testing.TB, db *sql.DB, rec models.Recipe, lines ...Line) models.Recipe {
	t.Helper()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Images == nil {
		rec.Images = map[string]string{
			models.ImageThumbnail: rec.ID + "-t.jpg",
			models.ImageSmall:     rec.ID + "-s.jpg",
			models.ImageRegular:   rec.ID + "-r.jpg",
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	js := func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) == "null" {
			return "[]"
		}
		return string(b)
	}

	_, err := db.Exec(`
		INSERT INTO recipes (id, name, images, ingredient_lines, servings, diet_labels, health_labels,
			calories, nutrients, daily_nutrients, cautions, link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, js(rec.Images), js(rec.IngredientLines), rec.Servings, js(rec.DietLabels),
		js(rec.HealthLabels), rec.Calories, js(rec.Nutrients), js(rec.DailyNutrients), js(rec.Cautions),
		rec.Link, rec.CreatedAt)
	if err != nil {
		t.Fatalf("seed recipe: %v", err)
	}

	for _, l := range lines {
		if _, err := db.Exec(`INSERT OR IGNORE INTO ingredients (id, name, category) VALUES (?, ?, ?)`,
			uuid.NewString(), l.Name, l.Category); err != nil {
			t.Fatalf("seed ingredient: %v", err)
		}
		var ingID string
		if err := db.QueryRow(`SELECT id FROM ingredients WHERE name = ?`, l.Name).Scan(&ingID); err != nil {
			t.Fatalf("lookup ingredient: %v", err)
		}
		if _, err := db.Exec(`
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, text, quantity, measure)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, ingID, l.Text, l.Quantity, l.Measure); err != nil {
			t.Fatalf("seed recipe ingredient: %v", err)
		}
	}
	return rec
}
