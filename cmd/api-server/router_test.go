package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/internal/auth"
	synchub "recipehub/internal/sync"
	"recipehub/internal/testutil"
	"recipehub/pkg/models"
	"recipehub/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T) (http.Handler, app) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg"), 0o644))

	a := app{
		db: testutil.NewDB(t),
		cfg: utils.ServerConfig{
			ContentDir:   dir,
			ImageBaseURL: "/images/",
		},
		tokens: auth.TokenService{Secret: []byte("test-secret"), Issuer: "recipehub", Duration: time.Hour},
		hub:    synchub.NewHub(),
		log:    zerolog.Nop(),
	}
	return withCORS(newRouter(a), []string{"http://localhost:5173"}), a
}

func call(h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndReady(t *testing.T) {
	h, _ := newTestApp(t)

	w := call(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = call(h, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "ready", out["status"])
	assert.Equal(t, "disabled", out["cache"])
	assert.EqualValues(t, 0, out["ws_clients"])
}

func TestRouter_ReadyFailsWhenDBClosed(t *testing.T) {
	h, a := newTestApp(t)
	require.NoError(t, a.db.Close())

	w := call(h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_RecipesAndImages(t *testing.T) {
	h, a := newTestApp(t)
	rec := testutil.SeedRecipe(t, a.db, models.Recipe{
		Name:   "Mango Smoothie",
		Images: map[string]string{models.ImageRegular: "a.jpg"},
	})

	w := call(h, http.MethodGet, "/recipes/"+rec.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mango Smoothie")

	w = call(h, http.MethodGet, "/recipes/"+rec.ID+"/image/regular", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"/images/a.jpg"}`, w.Body.String())

	w = call(h, http.MethodGet, "/images/a.jpg", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
}

func TestRouter_UsersRequireAuth(t *testing.T) {
	h, _ := newTestApp(t)

	w := call(h, http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(h, http.MethodPost, "/auth/register", `{"username":"alice","password":"password123"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	require.NotEmpty(t, reg.Token)

	req := httptest.NewRequest(http.MethodGet, "/users/me/recipes", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/recipes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/recipes", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Metrics(t *testing.T) {
	h, _ := newTestApp(t)
	call(h, http.MethodGet, "/health", "")

	w := call(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `recipehub_http_requests_total{method="GET",route="/health",status="200"}`)
}
