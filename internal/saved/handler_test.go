package saved

import (
	"bytes"
	"encoding/json"
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
	"recipehub/internal/recipe"
	"recipehub/internal/sync"
	"recipehub/internal/testutil"
	"recipehub/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	router  *gin.Engine
	users   *auth.Repo
	tokens  auth.TokenService
	hub     *sync.Hub
	recipes []models.Recipe
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewDB(t)
	e := &env{
		users:  auth.NewRepo(db),
		tokens: auth.TokenService{Secret: []byte("test"), Issuer: "test", Duration: time.Hour},
		hub:    sync.NewHub(),
	}
	for _, name := range []string{"Lime Smoothie", "Green Salad"} {
		e.recipes = append(e.recipes, testutil.SeedRecipe(t, db, models.Recipe{Name: name, Servings: 1, Calories: 100}))
	}

	h := NewHandler(NewRepo(db), recipe.NewRepo(db), e.hub, zerolog.Nop())

	e.router = gin.New()
	e.router.GET("/ws", sync.WSHandler(e.hub, e.tokens, e.users, nil, zerolog.Nop()))
	users := e.router.Group("/users", auth.AuthMiddleware(e.tokens, e.users))
	h.RegisterRoutes(users)
	return e
}

func (e *env) user(t *testing.T, name string) (id, token string) {
	t.Helper()

	u := auth.User{ID: uuid.NewString(), Username: name, PasswordHash: "x"}
	require.NoError(t, e.users.CreateUser(t.Context(), u))
	token, _, err := e.tokens.Sign(&u)
	require.NoError(t, err)
	return u.ID, token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type listResp struct {
	Total int                  `json:"total"`
	Items []models.SavedRecipe `json:"items"`
}

func TestSavedRecipesFlow(t *testing.T) {
	e := newEnv(t)
	aliceID, alice := e.user(t, "alice")
	smoothie, salad := e.recipes[0], e.recipes[1]

	w := e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{"recipe_id": smoothie.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{"recipe_id": smoothie.ID})
	assert.Equal(t, http.StatusOK, w.Code, "saving twice is a no-op")

	w = e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{"recipe_id": salad.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{"recipe_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/users/"+aliceID+"/recipes", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out listResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Items, 2)
	for _, it := range out.Items {
		require.NotNil(t, it.Recipe)
		assert.Equal(t, it.RecipeID, it.Recipe.ID)
		assert.Equal(t, aliceID, it.UserID)
	}

	w = e.do(t, http.MethodDelete, "/users/me/recipes/"+smoothie.ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/users/me/recipes/"+smoothie.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/users/me/recipes", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, salad.ID, out.Items[0].RecipeID)
}

func TestSavedRecipesAreSelfOnly(t *testing.T) {
	e := newEnv(t)
	aliceID, _ := e.user(t, "alice")
	_, bob := e.user(t, "bob")

	w := e.do(t, http.MethodGet, "/users/"+aliceID+"/recipes", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/users/"+aliceID+"/recipes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSavedEventsReachOnlyTheirUser(t *testing.T) {
	e := newEnv(t)
	_, alice := e.user(t, "alice")
	_, bob := e.user(t, "bob")

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"garbage", nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	dial := func(token string) *websocket.Conn {
		ws, _, err := websocket.DefaultDialer.Dial(wsURL+token, nil)
		require.NoError(t, err)
		t.Cleanup(func() { ws.Close() })

		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(msg), "welcome")
		return ws
	}
	aliceWS := dial(alice)
	bobWS := dial(bob)

	require.Eventually(t, func() bool { return e.hub.Stats().Users == 2 }, time.Second, 10*time.Millisecond)

	w := e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{"recipe_id": e.recipes[0].ID})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, aliceWS.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev sync.SavedEvent
	require.NoError(t, aliceWS.ReadJSON(&ev))
	assert.Equal(t, sync.EventSaved, ev.Type)
	assert.Equal(t, e.recipes[0].ID, ev.RecipeID)
	assert.Equal(t, "Lime Smoothie", ev.Name)

	require.NoError(t, bobWS.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = bobWS.ReadMessage()
	assert.Error(t, err, "bob must not see alice's events")
}

func TestSavedEventsKeepRequestOrder(t *testing.T) {
	e := newEnv(t)
	_, alice := e.user(t, "alice")

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token="+alice, nil)
	require.NoError(t, err)
	defer ws.Close()
	_, _, err = ws.ReadMessage() // welcome
	require.NoError(t, err)
	require.Eventually(t, func() bool { return e.hub.Stats().Clients == 1 }, time.Second, 10*time.Millisecond)

	id := e.recipes[1].ID
	for range 5 {
		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/users/me/recipes", alice, gin.H{"recipe_id": id}).Code)
		require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/users/me/recipes/"+id, alice, nil).Code)
	}

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := range 10 {
		var ev sync.SavedEvent
		require.NoError(t, ws.ReadJSON(&ev))
		want := sync.EventSaved
		if i%2 == 1 {
			want = sync.EventUnsaved
		}
		assert.Equal(t, want, ev.Type, "event %d", i)
	}
}
