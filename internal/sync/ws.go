package sync

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"recipehub/internal/auth"
)

// newUpgrader accepts browser upgrades only from the allowed origins ("*"
// allows any). Requests without an Origin header come from non-browser
// clients and are let through; the token check still applies to them.
// With no origins configured the gorilla same-origin default is used.
func newUpgrader(origins []string) *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(origins) == 0 {
		return u
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
	return u
}

// WSHandler upgrades an authenticated request and streams the caller's saved
// recipe events. Browsers cannot set headers on websocket requests, so the
// token may also come from ?token=.
func WSHandler(hub *Hub, tokens auth.TokenService, users *auth.Repo, origins []string, log zerolog.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(origins)
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
				raw = strings.TrimSpace(h[len("Bearer "):])
			}
		}
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := auth.Verify(c.Request.Context(), tokens, users, raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Str("origin", c.GetHeader("Origin")).Msg("websocket upgrade")
			return
		}

		// welcome goes out before the hub sees the connection so it never
		// races a broadcast
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","transport":"websocket"}`))
		hub.Add(claims.UserID, ws)
		log.Debug().Str("user_id", claims.UserID).Msg("ws client connected")

		// incoming messages are ignored; reading detects the close
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.Remove(claims.UserID, ws)
		log.Debug().Str("user_id", claims.UserID).Msg("ws client disconnected")
	}
}
