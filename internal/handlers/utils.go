// internal/handlers/utils.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/classcast/lobbyd/internal/auth"
)

// extractTokenFromCookie pulls the auth_token value out of a raw Cookie
// header.
func extractTokenFromCookie(cookie string) string {
	parts := strings.Split(cookie, "auth_token=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// authenticatedUser returns the user id from the request's auth_token
// cookie, or uuid.Nil when none is present or valid.
func authenticatedUser(r *http.Request) uuid.UUID {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, "auth_token=") {
		return uuid.Nil
	}
	sub, err := auth.AuthenticateJWT(extractTokenFromCookie(cookie))
	if err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// requireUser enforces a valid auth_token cookie, writing 401/403 itself.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, "auth_token=") {
		http.Error(w, "missing auth_token", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	sub, err := auth.AuthenticateJWT(extractTokenFromCookie(cookie))
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		http.Error(w, "invalid user id format in token", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
