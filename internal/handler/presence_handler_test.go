package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presenceStore struct {
	memSessionStore
	online []string
}

func (p *presenceStore) OnlineUsers(ctx context.Context) ([]string, error) {
	return p.online, nil
}

func presenceRequest(t *testing.T, store *presenceStore) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/presence/online", NewPresenceHandler(store).Online)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/presence/online", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPresenceOnlineListsUsers(t *testing.T) {
	w := presenceRequest(t, &presenceStore{online: []string{"user-1", "user-2"}})

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			UserIDs []string `json:"user_ids"`
			Count   int      `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, body.Data.UserIDs)
	assert.Equal(t, 2, body.Data.Count)
}

func TestPresenceOnlineEmptyIsAnArray(t *testing.T) {
	w := presenceRequest(t, &presenceStore{})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_ids":[]`)
	assert.NotContains(t, w.Body.String(), "null")
}