package ingest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"recipehub/internal/testutil"
	"recipehub/pkg/database"
	"recipehub/pkg/models"
)

func sampleBatch() ([]models.Recipe, []models.Ingredient, []models.RecipeIngredient) {
	now := time.Now().UTC().Truncate(time.Second)
	recipes := []models.Recipe{{
		ID:              uuid.NewString(),
		Name:            "Lime Smoothie",
		Images:          map[string]string{"THUMBNAIL": "t.jpg", "SMALL": "s.jpg", "REGULAR": "r.jpg"},
		IngredientLines: []string{"1 lime"},
		Servings:        2,
		DietLabels:      []string{"Low-Fat"},
		HealthLabels:    []string{"Vegan"},
		Calories:        120,
		Nutrients:       []models.Nutrient{{Tag: "ENERC_KCAL", Label: "Energy", Quantity: 120, Unit: "kcal"}},
		DailyNutrients:  []models.Nutrient{},
		Cautions:        []string{},
		Link:            "https://example.com/lime",
		CreatedAt:       now,
	}}
	ingredients := []models.Ingredient{{ID: uuid.NewString(), Name: "lime", Category: "fruit"}}
	links := []models.RecipeIngredient{{
		RecipeID: recipes[0].ID, IngredientID: ingredients[0].ID, Text: "1 lime", Quantity: 1, Measure: "<unit>",
	}}
	return recipes, ingredients, links
}

func TestSQLiteLoader(t *testing.T) {
	l := NewSQLiteLoader(testutil.NewDB(t))
	ctx := context.Background()
	recipes, ingredients, links := sampleBatch()

	require.NoError(t, l.InsertRecipes(ctx, recipes))
	require.NoError(t, l.InsertIngredients(ctx, ingredients))
	require.NoError(t, l.InsertRecipeIngredients(ctx, links))

	ids, err := l.IngredientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lime": ingredients[0].ID}, ids)

	var images string
	require.NoError(t, l.DB.QueryRow(`SELECT images FROM recipes WHERE id = ?`, recipes[0].ID).Scan(&images))
	assert.JSONEq(t, `{"THUMBNAIL":"t.jpg","SMALL":"s.jpg","REGULAR":"r.jpg"}`, images)

	// empty batches are a no-op
	require.NoError(t, l.InsertRecipes(ctx, nil))
}

func TestSQLiteLoader_BatchIsAtomic(t *testing.T) {
	l := NewSQLiteLoader(testutil.NewDB(t))
	ctx := context.Background()

	dup := []models.Ingredient{
		{ID: "a", Name: "lime", Category: "fruit"},
		{ID: "b", Name: "mint", Category: "herb"},
		{ID: "c", Name: "lime", Category: "fruit"},
	}
	err := l.InsertIngredients(ctx, dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingredients")

	ids, err := l.IngredientIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "the failed batch is rolled back")
}

func TestSQLiteLoader_ForeignKeys(t *testing.T) {
	l := NewSQLiteLoader(testutil.NewDB(t))
	_, _, links := sampleBatch()

	err := l.InsertRecipeIngredients(context.Background(), links)
	assert.Error(t, err, "join rows need their recipe and ingredient")
}

func TestDiscardLoader(t *testing.T) {
	d := DiscardLoader{Log: zerolog.Nop()}
	recipes, ingredients, links := sampleBatch()
	ctx := context.Background()

	assert.NoError(t, d.InsertRecipes(ctx, recipes))
	assert.NoError(t, d.InsertIngredients(ctx, ingredients))
	assert.NoError(t, d.InsertRecipeIngredients(ctx, links))
}

func setupTestMongo(t *testing.T) *mongo.Database {
	t.Helper()

	cfg := database.DefaultMongoConfig()
	if os.Getenv("MONGODB_URI") == "" {
		t.Skip("MONGODB_URI not set")
	}
	cfg.Database = "recipehub_test_" + uuid.NewString()[:8]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := database.OpenMongo(ctx, cfg)
	if err != nil {
		t.Skipf("MongoDB not available for testing: %v", err)
	}

	db := client.Database(cfg.Database)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoLoader(t *testing.T) {
	db := setupTestMongo(t)
	l := NewMongoLoader(db)
	ctx := context.Background()
	recipes, ingredients, links := sampleBatch()

	require.NoError(t, l.InsertRecipes(ctx, recipes))
	require.NoError(t, l.InsertIngredients(ctx, ingredients))
	require.NoError(t, l.InsertRecipeIngredients(ctx, links))
	require.NoError(t, l.InsertRecipes(ctx, nil))

	var got models.Recipe
	require.NoError(t, db.Collection(RecipesCollection).FindOne(ctx, bson.M{"_id": recipes[0].ID}).Decode(&got))
	assert.Equal(t, "Lime Smoothie", got.Name)
	assert.Equal(t, recipes[0].Images, got.Images)

	n, err := db.Collection(RecipeIngredientsCollection).CountDocuments(ctx, bson.M{"recipeId": recipes[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ids, err := l.IngredientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, ingredients[0].ID, ids["lime"])
}
