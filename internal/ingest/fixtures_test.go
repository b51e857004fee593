package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// rawRecipe builds a complete Edamam record whose images point at base.
func rawRecipe(base, label string, foods ...string) map[string]any {
	ings := make([]any, 0, len(foods))
	lines := make([]any, 0, len(foods))
	for _, f := range foods {
		ings = append(ings, map[string]any{
			"food":         f,
			"foodCategory": "fruit",
			"quantity":     1.0,
			"text":         "1 " + f,
			"measure":      "<unit>",
			"weight":       67.0,
		})
		lines = append(lines, "1 "+f)
	}
	img := func(size string) map[string]any {
		return map[string]any{"url": base + "/img/" + label + "-" + size + ".jpg", "width": 100, "height": 100}
	}
	nutrient := func(label, unit string, q float64) map[string]any {
		return map[string]any{"label": label, "quantity": q, "unit": unit}
	}

	return map[string]any{
		"uri":             "http://www.edamam.com/ontologies/edamam.owl#recipe_" + label,
		"label":           label,
		"ingredientLines": lines,
		"ingredients":     ings,
		"yield":           2.0,
		"images": map[string]any{
			"THUMBNAIL": img("t"),
			"SMALL":     img("s"),
			"REGULAR":   img("r"),
		},
		"dietLabels":   []any{"Low-Fat"},
		"healthLabels": []any{"Vegan", "Vegetarian"},
		"totalNutrients": map[string]any{
			"FAT":        nutrient("Fat", "g", 1.5),
			"ENERC_KCAL": nutrient("Energy", "kcal", 250),
		},
		"totalDaily": map[string]any{
			"ENERC_KCAL": nutrient("Energy", "%", 12.5),
		},
		"cautions": []any{},
		"calories": 250.0,
		"url":      "https://example.com/" + label,
	}
}

func decodeRaw(t *testing.T, m map[string]any) *RawRecipe {
	t.Helper()

	b, err := json.Marshal(m)
	require.NoError(t, err)
	var raw RawRecipe
	require.NoError(t, json.Unmarshal(b, &raw))
	return &raw
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(4, 4, color.NRGBA{R: 255, A: 255}), imaging.JPEG))
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(4, 4, color.NRGBA{G: 255, A: 255}), imaging.PNG))
	return buf.Bytes()
}

// fakeAPI serves fixed pages of hits and the images they reference.
type fakeAPI struct {
	srv   *httptest.Server
	count int
	pages [][]map[string]any

	pageHits  atomic.Int32
	imageHits atomic.Int32
	// failImages makes image requests whose path contains the string fail
	failImages string
}

func newFakeAPI(t *testing.T, count int, jpeg []byte) *fakeAPI {
	t.Helper()

	f := &fakeAPI{count: count}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/recipes/v2", func(w http.ResponseWriter, r *http.Request) {
		f.pageHits.Add(1)
		if r.URL.Query().Get("app_key") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}

		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if n >= len(f.pages) {
			http.Error(w, "no such page", http.StatusNotFound)
			return
		}

		hits := make([]any, 0, len(f.pages[n]))
		for _, rec := range f.pages[n] {
			hits = append(hits, map[string]any{"recipe": rec})
		}
		body := map[string]any{
			"from":  n*20 + 1,
			"to":    n*20 + len(hits),
			"count": f.count,
			"hits":  hits,
		}
		if n+1 < len(f.pages) {
			body["_links"] = map[string]any{"next": map[string]any{
				"href":  fmt.Sprintf("%s/api/recipes/v2?type=public&app_key=k&page=%d", f.srv.URL, n+1),
				"title": "Next page",
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		f.imageHits.Add(1)
		if f.failImages != "" && strings.Contains(r.URL.Path, f.failImages) {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpeg)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) baseURL() string { return f.srv.URL + "/api/recipes/v2" }
