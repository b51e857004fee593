package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialURL(t *testing.T) {
	got, err := dialURL("ws://localhost:3000/ws?x=1", "abc")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3000/ws?token=abc&x=1", got)
}

func TestWatch_PrintsEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"saved.add","recipe_id":"r1"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`plain`))
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

	var out bytes.Buffer
	err := watch(context.Background(), endpoint, "good", false, &out)
	require.Error(t, err) // server closed the connection
	assert.Equal(t, "{\"type\":\"saved.add\",\"recipe_id\":\"r1\"}\nplain\n", out.String())

	err = watch(context.Background(), endpoint, "bad", false, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token rejected")
}
