package models

import "time"

// Image size labels reported by the recipe API. The first three are
// mandatory for every stored recipe.
const (
	ImageThumbnail = "THUMBNAIL"
	ImageSmall     = "SMALL"
	ImageRegular   = "REGULAR"
	ImageLarge     = "LARGE"
)

// RequiredImageSizes lists the size labels every persisted recipe carries.
var RequiredImageSizes = []string{ImageThumbnail, ImageSmall, ImageRegular}

// Nutrient is one entry of a recipe's nutrient breakdown.
type Nutrient struct {
	Tag      string  `json:"tag" bson:"tag"`
	Label    string  `json:"label" bson:"label"`
	Quantity float64 `json:"quantity" bson:"quantity"`
	Unit     string  `json:"unit" bson:"unit"`
}

// Recipe is the catalog form of a recipe. Images maps a size label to the
// stored filename inside the content directory.
type Recipe struct {
	ID              string            `json:"id" bson:"_id"`
	Name            string            `json:"name" bson:"name"`
	Images          map[string]string `json:"images" bson:"images"`
	IngredientLines []string          `json:"ingredient_lines" bson:"ingredientLines"`
	Servings        float64           `json:"servings" bson:"servings"`
	DietLabels      []string          `json:"diet_labels" bson:"dietLabels"`
	HealthLabels    []string          `json:"health_labels" bson:"healthLabels"`
	Calories        float64           `json:"calories" bson:"calories"`
	Nutrients       []Nutrient        `json:"nutrients" bson:"nutrients"`
	DailyNutrients  []Nutrient        `json:"daily_nutrients" bson:"dailyNutrients"`
	Cautions        []string          `json:"cautions" bson:"cautions"`
	Link            string            `json:"link" bson:"link"`
	CreatedAt       time.Time         `json:"created_at" bson:"createdAt"`
}

// RecipeDetail is a recipe together with its ingredient join rows.
type RecipeDetail struct {
	Recipe
	Ingredients []RecipeIngredientView `json:"ingredients"`
}
