// Package mirror turns a stored catalog back into Edamam v2 search payloads
// and serves them, so ingestion can be exercised without the real API.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"recipehub/internal/ingest"
	"recipehub/internal/recipe"
	"recipehub/pkg/models"
)

// FromCatalog converts up to limit stored recipes (all when limit <= 0) into
// hits whose image URLs are imageBase joined with the stored file names.
func FromCatalog(ctx context.Context, repo *recipe.Repo, imageBase string, limit int) ([]ingest.Hit, error) {
	var hits []ingest.Hit
	for offset := 0; ; {
		batch, err := repo.List(ctx, recipe.ListQuery{Limit: 100, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list recipes: %w", err)
		}
		if len(batch) == 0 {
			return hits, nil
		}
		offset += len(batch)

		for _, rec := range batch {
			lines, err := repo.Ingredients(ctx, rec.ID)
			if err != nil {
				return nil, fmt.Errorf("ingredients of %s: %w", rec.ID, err)
			}
			hits = append(hits, ingest.Hit{Recipe: toRaw(rec, lines, imageBase)})
			if limit > 0 && len(hits) >= limit {
				return hits, nil
			}
		}
	}
}

func toRaw(rec models.Recipe, lines []models.RecipeIngredientView, imageBase string) ingest.RawRecipe {
	ptr := func(s string) *string { return &s }
	num := func(f float64) *float64 { return &f }
	orEmpty := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}

	raw := ingest.RawRecipe{
		Label:           ptr(rec.Name),
		IngredientLines: orEmpty(rec.IngredientLines),
		Ingredients:     make([]ingest.RawIngredient, 0, len(lines)),
		Yield:           num(rec.Servings),
		Images:          make(map[string]*ingest.RawImage, len(rec.Images)),
		DietLabels:      orEmpty(rec.DietLabels),
		HealthLabels:    orEmpty(rec.HealthLabels),
		TotalNutrients:  nutrientMap(rec.Nutrients),
		TotalDaily:      nutrientMap(rec.DailyNutrients),
		Cautions:        orEmpty(rec.Cautions),
		Calories:        num(rec.Calories),
		URL:             ptr(rec.Link),
	}
	for size, file := range rec.Images {
		raw.Images[size] = &ingest.RawImage{URL: imageBase + file}
	}
	for _, l := range lines {
		raw.Ingredients = append(raw.Ingredients, ingest.RawIngredient{
			Food:         ptr(l.Name),
			FoodCategory: ptr(l.Category),
			Quantity:     num(l.Quantity),
			Text:         ptr(l.Text),
			Measure:      ptr(l.Measure),
		})
	}
	return raw
}

func nutrientMap(ns []models.Nutrient) map[string]*ingest.RawNutrient {
	out := make(map[string]*ingest.RawNutrient, len(ns))
	for _, n := range ns {
		out[n.Tag] = &ingest.RawNutrient{Label: n.Label, Quantity: n.Quantity, Unit: n.Unit}
	}
	return out
}

// Save writes hits as an indented JSON array.
func Save(path string, hits []ingest.Hit) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mirror: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a file written by Save.
func Load(path string) ([]ingest.Hit, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hits []ingest.Hit
	if err := json.Unmarshal(b, &hits); err != nil {
		return nil, fmt.Errorf("%s: invalid mirror JSON: %w", path, err)
	}
	return hits, nil
}
