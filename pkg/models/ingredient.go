package models

// Ingredient is a distinct food across the whole catalog.
type Ingredient struct {
	ID       string `json:"id" bson:"_id"`
	Name     string `json:"name" bson:"name"`
	Category string `json:"category" bson:"category"`
}

// RecipeIngredient links one ingredient line of a recipe to an Ingredient.
type RecipeIngredient struct {
	RecipeID     string  `json:"recipe_id" bson:"recipeId"`
	IngredientID string  `json:"ingredient_id" bson:"ingredientId"`
	Text         string  `json:"text" bson:"text"`
	Quantity     float64 `json:"quantity" bson:"quantity"`
	Measure      string  `json:"measure" bson:"measure"`
}

// RecipeIngredientView is a join row resolved against its ingredient.
type RecipeIngredientView struct {
	IngredientID string  `json:"ingredient_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Text         string  `json:"text"`
	Quantity     float64 `json:"quantity"`
	Measure      string  `json:"measure"`
}
