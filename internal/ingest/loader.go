package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"recipehub/pkg/models"
)

// Loader bulk-inserts one run's output, one call per table.
type Loader interface {
	InsertRecipes(ctx context.Context, recipes []models.Recipe) error
	InsertIngredients(ctx context.Context, ingredients []models.Ingredient) error
	InsertRecipeIngredients(ctx context.Context, links []models.RecipeIngredient) error
}

// IngredientLister is implemented by loaders that can report the ingredient
// names already stored, used to seed the Registry.
type IngredientLister interface {
	IngredientIDs(ctx context.Context) (map[string]string, error)
}

// DiscardLoader drops everything; used for dry runs.
type DiscardLoader struct {
	Log zerolog.Logger
}

func (d DiscardLoader) InsertRecipes(_ context.Context, recipes []models.Recipe) error {
	d.Log.Info().Int("rows", len(recipes)).Msg("dry run: skipping recipes")
	return nil
}

func (d DiscardLoader) InsertIngredients(_ context.Context, ingredients []models.Ingredient) error {
	d.Log.Info().Int("rows", len(ingredients)).Msg("dry run: skipping ingredients")
	return nil
}

func (d DiscardLoader) InsertRecipeIngredients(_ context.Context, links []models.RecipeIngredient) error {
	d.Log.Info().Int("rows", len(links)).Msg("dry run: skipping recipe ingredients")
	return nil
}
