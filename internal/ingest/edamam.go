package ingest

// Raw Edamam Recipe Search v2 payloads. Pointer, slice and map fields stay
// nil when the key is missing or null so the Validator can tell "absent"
// apart from "empty".

const (
	DefaultBaseURL = "https://api.edamam.com/api/recipes/v2"
	DefaultAppID   = "81c3484e"
	DefaultQuery   = "smoothie"
)

type Page struct {
	Hits  []Hit `json:"hits"`
	Count *int  `json:"count"`
	Links struct {
		Next *Link `json:"next"`
	} `json:"_links"`
}

type Link struct {
	Href  string `json:"href"`
	Title string `json:"title"`
}

type Hit struct {
	Recipe RawRecipe `json:"recipe"`
}

type RawRecipe struct {
	Label           *string                 `json:"label"`
	IngredientLines []string                `json:"ingredientLines"`
	Ingredients     []RawIngredient         `json:"ingredients"`
	Yield           *float64                `json:"yield"`
	Images          map[string]*RawImage    `json:"images"`
	DietLabels      []string                `json:"dietLabels"`
	HealthLabels    []string                `json:"healthLabels"`
	TotalNutrients  map[string]*RawNutrient `json:"totalNutrients"`
	TotalDaily      map[string]*RawNutrient `json:"totalDaily"`
	Cautions        []string                `json:"cautions"`
	Calories        *float64                `json:"calories"`
	URL             *string                 `json:"url"`
}

type RawIngredient struct {
	Food         *string  `json:"food"`
	FoodCategory *string  `json:"foodCategory"`
	Quantity     *float64 `json:"quantity"`
	Text         *string  `json:"text"`
	Measure      *string  `json:"measure"`
}

type RawImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type RawNutrient struct {
	Label    string  `json:"label"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}
