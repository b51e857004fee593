package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes mounts the account endpoints. The group is expected to
// already run AuthMiddleware.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.GET("/:id", h.getUser)
	rg.PUT("/:id", RequireSelf(), h.updateUser)
	rg.DELETE("/:id", RequireSelf(), h.deleteUser)
}

// RequireSelf rejects requests whose :id param is not the caller.
// "me" is accepted as an alias for the caller's own id.
func RequireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := MustGetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		id := c.Param("id")
		if id != "me" && id != claims.UserID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	h.respondUser(c, claims.UserID)
}

func (h *Handler) getUser(c *gin.Context) {
	h.respondUser(c, c.Param("id"))
}

func (h *Handler) respondUser(c *gin.Context, id string) {
	u, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateUserReq struct {
	Username string `json:"username"`
}

func (h *Handler) updateUser(c *gin.Context) {
	claims := MustGetClaims(c)

	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if !validUsername(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 3-30 chars"})
		return
	}

	if err := h.Repo.UpdateUsername(c.Request.Context(), claims.UserID, req.Username); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		h.Log.Error().Err(err).Str("user_id", claims.UserID).Msg("update username")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}

	h.respondUser(c, claims.UserID)
}

func (h *Handler) deleteUser(c *gin.Context) {
	claims := MustGetClaims(c)

	ok, err := h.Repo.DeleteUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", claims.UserID).Msg("delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete user failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	h.Log.Info().Str("user_id", claims.UserID).Msg("user deleted")
	c.Status(http.StatusNoContent)
}
