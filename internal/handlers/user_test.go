// internal/handlers/user_test.go
package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The engine runs without postgres when PG_HOST is unset; the account
// endpoints must reject cleanly in that mode instead of reaching into a
// nil pool.
func TestAccountEndpointsWithoutStorage(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/user/create", "", map[string]string{
		"email":    "t@example.com",
		"password": "hunter22",
		"name":     "Teach",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/user/login", "", map[string]string{
		"email":    "t@example.com",
		"password": "hunter22",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/user/me", authCookie(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// The coordination surface stays fully functional without storage.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/game-lobbies", authCookie(t), nil)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusServiceUnavailable, resp.StatusCode)
}
