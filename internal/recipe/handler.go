package recipe

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	Repo  *Repo
	Cache *SearchCache
	// ImageBaseURL is prefixed to stored filenames, e.g. "/images/" or a CDN.
	ImageBaseURL string
	Log          zerolog.Logger
}

func NewHandler(repo *Repo, cache *SearchCache, imageBaseURL string, log zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Cache: cache, ImageBaseURL: imageBaseURL, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                     // GET /recipes
	rg.GET("/search/:keyword", h.search)   // GET /recipes/search/:keyword
	rg.GET("/random", h.random)            // GET /recipes/random
	rg.GET("/:id", h.getByID)              // GET /recipes/:id
	rg.GET("/:id/image/:size", h.imageURL) // GET /recipes/:id/image/:size
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:          c.Query("q"),
		Diet:       queryList(c, "diet"),
		Health:     queryList(c, "health"),
		Ingredient: c.Query("ingredient"),
		Limit:      parseInt(c.Query("limit"), 20),
		Offset:     parseInt(c.Query("offset"), 0),
	}

	var err error
	if q.MinCalories, err = parseFloatPtr(c.Query("min_calories")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_calories"})
		return
	}
	if q.MaxCalories, err = parseFloatPtr(c.Query("max_calories")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_calories"})
		return
	}

	page, ok := h.page(c, q)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  page.Total,
		"limit":  normLimit(q.Limit),
		"offset": max(q.Offset, 0),
		"items":  page.Items,
	})
}

func (h *Handler) search(c *gin.Context) {
	q := ListQuery{
		Q:     c.Param("keyword"),
		Limit: parseInt(c.Query("limit"), 20),
	}
	page, ok := h.page(c, q)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, page.Items)
}

// page serves a list query from the cache when possible.
func (h *Handler) page(c *gin.Context, q ListQuery) (*SearchPage, bool) {
	ctx := c.Request.Context()
	key := q.Key()

	cached, hit, err := h.Cache.Get(ctx, key)
	if err != nil {
		h.Log.Warn().Err(err).Msg("search cache get")
	}
	if hit {
		return cached, true
	}

	total, err := h.Repo.Count(ctx, q)
	if err != nil {
		h.Log.Error().Err(err).Msg("count recipes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return nil, false
	}

	items, err := h.Repo.List(ctx, q)
	if err != nil {
		h.Log.Error().Err(err).Msg("list recipes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return nil, false
	}

	page := &SearchPage{Total: total, Items: items}
	if err := h.Cache.Set(ctx, key, page); err != nil {
		h.Log.Warn().Err(err).Msg("search cache set")
	}
	return page, true
}

func (h *Handler) random(c *gin.Context) {
	d, err := h.Repo.Random(c.Request.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("random recipe")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recipes"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) getByID(c *gin.Context) {
	d, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Log.Error().Err(err).Str("recipe_id", c.Param("id")).Msg("get recipe")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) imageURL(c *gin.Context) {
	d, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	file, ok := PickImage(d.Images, c.Param("size"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "image size not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.ImageBaseURL + file})
}

// queryList accepts both diet=a,b and diet=a&diet=b.
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseFloatPtr(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
