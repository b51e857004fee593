package sync

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/internal/auth"
	"recipehub/internal/testutil"
)

func TestWSHandler_Origins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := auth.NewRepo(testutil.NewDB(t))
	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "test", Duration: time.Hour}
	u := auth.User{ID: uuid.NewString(), Username: "alice", PasswordHash: "x"}
	require.NoError(t, users.CreateUser(t.Context(), u))
	token, _, err := tokens.Sign(&u)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/ws", WSHandler(NewHub(), tokens, users, []string{"https://app.example.com"}, zerolog.Nop()))
	srv := httptest.NewServer(r)
	defer srv.Close()
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", "https://app.example.com", true},
		{"other origin", "https://evil.example.com", false},
		{"no origin header", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.origin != "" {
				h.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(endpoint, h)
			if !tt.ok {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			assert.Contains(t, string(msg), "welcome")
		})
	}
}

func TestWSHandler_RequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := auth.NewRepo(testutil.NewDB(t))
	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "test", Duration: time.Hour}

	r := gin.New()
	r.GET("/ws", WSHandler(NewHub(), tokens, users, []string{"*"}, zerolog.Nop()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
