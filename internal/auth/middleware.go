package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

var ErrTokenRevoked = errors.New("token revoked")

// Verify parses a raw token and, when repo is set, rejects tokens whose
// version no longer matches the user's (logout, password change, deletion).
func Verify(ctx context.Context, tokens TokenService, repo *Repo, raw string) (*Claims, error) {
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		u, err := repo.GetByID(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		if u == nil || u.TokenVersion != claims.TokenVersion {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		claims, err := Verify(c.Request.Context(), tokens, repo, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
