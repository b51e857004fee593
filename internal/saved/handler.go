package saved

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"recipehub/internal/auth"
	"recipehub/internal/recipe"
	"recipehub/internal/sync"
)

type Handler struct {
	Repo    *Repo
	Recipes *recipe.Repo
	Hub     *sync.Hub
	Log     zerolog.Logger
}

func NewHandler(repo *Repo, recipes *recipe.Repo, hub *sync.Hub, log zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Recipes: recipes, Hub: hub, Log: log}
}

// RegisterRoutes mounts the saved-list endpoints on an authenticated /users group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/recipes", auth.RequireSelf(), h.list)
	rg.POST("/me/recipes", h.add)
	rg.DELETE("/me/recipes/:recipe_id", h.remove)
}

type addReq struct {
	RecipeID string `json:"recipe_id"`
}

func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	recipeID := strings.TrimSpace(req.RecipeID)
	if recipeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe_id required"})
		return
	}

	rec, err := h.Recipes.GetByID(c.Request.Context(), recipeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get recipe failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}

	created, err := h.Repo.Add(c.Request.Context(), claims.UserID, recipeID)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", claims.UserID).Str("recipe_id", recipeID).Msg("save recipe")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "already saved"})
		return
	}

	if h.Hub != nil {
		ev := sync.SavedEvent{
			Type:     sync.EventSaved,
			UserID:   claims.UserID,
			RecipeID: recipeID,
			Name:     rec.Name,
			At:       time.Now().UTC(),
		}
		h.Hub.BroadcastToUser(claims.UserID, ev)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "saved", "recipe_id": recipeID})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", claims.UserID).Msg("list saved")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	recipeID := strings.TrimSpace(c.Param("recipe_id"))
	ok, err := h.Repo.Remove(c.Request.Context(), claims.UserID, recipeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.Hub != nil {
		ev := sync.SavedEvent{
			Type:     sync.EventUnsaved,
			UserID:   claims.UserID,
			RecipeID: recipeID,
			At:       time.Now().UTC(),
		}
		h.Hub.BroadcastToUser(claims.UserID, ev)
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
