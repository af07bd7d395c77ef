// internal/handlers/user.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/classcast/lobbyd/internal/auth"
	"github.com/classcast/lobbyd/internal/database"
	"github.com/classcast/lobbyd/internal/models"
)

// CreateUserHandler registers a teacher account.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		http.Error(w, "account storage not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		IsTeacher: true,
	}

	if err := database.CreateUser(r.Context(), &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

// MeHandler returns the authenticated account behind the auth_token cookie.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if database.DB == nil {
		http.Error(w, "account storage not configured", http.StatusServiceUnavailable)
		return
	}
	u, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	u.Password = ""
	writeJSON(w, http.StatusOK, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler authenticates a teacher and sets the auth_token cookie the
// owner endpoints require.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		http.Error(w, "account storage not configured", http.StatusServiceUnavailable)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(context.Background(), req.Email, req.Password)
	if err != nil {
		log.Printf("failed to authenticate user: %v", err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TokenExpireSec(),
	})

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
