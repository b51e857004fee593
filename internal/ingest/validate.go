package ingest

import (
	"sort"
	"strconv"

	"recipehub/pkg/models"
)

// Candidate is a record that passed validation. Every field is populated.
type Candidate struct {
	Name            string
	ImageURLs       map[string]string // size label -> remote URL, empty when null
	IngredientLines []string
	Ingredients     []CandidateIngredient
	Servings        float64
	DietLabels      []string
	HealthLabels    []string
	Calories        float64
	Nutrients       []models.Nutrient
	DailyNutrients  []models.Nutrient
	Cautions        []string
	Link            string
}

type CandidateIngredient struct {
	Food     string
	Category string
	Quantity float64
	Text     string
	Measure  string
}

// Validate accepts a raw record only if every required field is present and
// non-null, every ingredient is complete and the mandatory image sizes exist.
func Validate(raw *RawRecipe) (Candidate, bool) {
	if raw == nil || len(MissingFields(raw)) > 0 {
		return Candidate{}, false
	}

	c := Candidate{
		Name:            *raw.Label,
		ImageURLs:       make(map[string]string, len(raw.Images)),
		IngredientLines: raw.IngredientLines,
		Ingredients:     make([]CandidateIngredient, 0, len(raw.Ingredients)),
		Servings:        *raw.Yield,
		DietLabels:      raw.DietLabels,
		HealthLabels:    raw.HealthLabels,
		Calories:        *raw.Calories,
		Nutrients:       nutrients(raw.TotalNutrients),
		DailyNutrients:  nutrients(raw.TotalDaily),
		Cautions:        raw.Cautions,
		Link:            *raw.URL,
	}
	for size, img := range raw.Images {
		// null optional sizes keep their key with no URL; the download fails
		url := ""
		if img != nil {
			url = img.URL
		}
		c.ImageURLs[size] = url
	}
	for _, ing := range raw.Ingredients {
		c.Ingredients = append(c.Ingredients, CandidateIngredient{
			Food:     *ing.Food,
			Category: *ing.FoodCategory,
			Quantity: *ing.Quantity,
			Text:     *ing.Text,
			Measure:  *ing.Measure,
		})
	}
	return c, true
}

// MissingFields lists what makes raw invalid, in a stable order.
func MissingFields(raw *RawRecipe) []string {
	var missing []string
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}

	check(raw.Label != nil, "label")
	check(raw.IngredientLines != nil, "ingredientLines")
	check(raw.Ingredients != nil, "ingredients")
	check(raw.Yield != nil, "yield")
	check(raw.Images != nil, "images")
	check(raw.DietLabels != nil, "dietLabels")
	check(raw.HealthLabels != nil, "healthLabels")
	check(raw.TotalNutrients != nil, "totalNutrients")
	check(raw.TotalDaily != nil, "totalDaily")
	check(raw.Cautions != nil, "cautions")
	check(raw.Calories != nil, "calories")
	check(raw.URL != nil, "url")

	for i, ing := range raw.Ingredients {
		prefix := "ingredients[" + strconv.Itoa(i) + "]."
		check(ing.Food != nil, prefix+"food")
		check(ing.FoodCategory != nil, prefix+"foodCategory")
		check(ing.Quantity != nil, prefix+"quantity")
		check(ing.Text != nil, prefix+"text")
		check(ing.Measure != nil, prefix+"measure")
	}

	if raw.Images != nil {
		for _, size := range models.RequiredImageSizes {
			img := raw.Images[size]
			check(img != nil && img.URL != "", "images."+size)
		}
	}
	return missing
}

// nutrients flattens a tag-keyed nutrient map, sorted by tag so the stored
// order is deterministic.
func nutrients(m map[string]*RawNutrient) []models.Nutrient {
	out := make([]models.Nutrient, 0, len(m))
	for tag, n := range m {
		if n == nil {
			continue
		}
		out = append(out, models.Nutrient{Tag: tag, Label: n.Label, Quantity: n.Quantity, Unit: n.Unit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
