package ingest

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recipehub/pkg/models"
)

const (
	RecipesCollection           = "recipes"
	IngredientsCollection       = "ingredients"
	RecipeIngredientsCollection = "recipe_ingredients"
)

// MongoLoader writes each batch with a single ordered InsertMany.
type MongoLoader struct {
	DB *mongo.Database
}

func NewMongoLoader(db *mongo.Database) *MongoLoader {
	return &MongoLoader{DB: db}
}

func (l *MongoLoader) InsertRecipes(ctx context.Context, recipes []models.Recipe) error {
	return l.insertMany(ctx, RecipesCollection, toDocs(recipes))
}

func (l *MongoLoader) InsertIngredients(ctx context.Context, ingredients []models.Ingredient) error {
	return l.insertMany(ctx, IngredientsCollection, toDocs(ingredients))
}

func (l *MongoLoader) InsertRecipeIngredients(ctx context.Context, links []models.RecipeIngredient) error {
	return l.insertMany(ctx, RecipeIngredientsCollection, toDocs(links))
}

func (l *MongoLoader) IngredientIDs(ctx context.Context) (map[string]string, error) {
	cur, err := l.DB.Collection(IngredientsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find ingredients: %w", err)
	}
	defer cur.Close(ctx)

	var all []models.Ingredient
	if err := cur.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}

	out := make(map[string]string, len(all))
	for _, ing := range all {
		out[ing.Name] = ing.ID
	}
	return out, nil
}

func (l *MongoLoader) insertMany(ctx context.Context, coll string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	opts := options.InsertMany().SetOrdered(true)
	if _, err := l.DB.Collection(coll).InsertMany(ctx, docs, opts); err != nil {
		return fmt.Errorf("insert into %s: %w", coll, err)
	}
	loadedRows.WithLabelValues(coll).Add(float64(len(docs)))
	return nil
}

func toDocs[T any](items []T) []any {
	docs := make([]any, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	return docs
}
