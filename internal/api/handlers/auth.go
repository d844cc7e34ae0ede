package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/gorilla/mux"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func toUserResponse(u *storage.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Register creates an account.
func Register(accounts *auth.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Email == "" || req.Password == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Username, email and password are required")
			return
		}

		user, err := accounts.Register(r.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

// Login exchanges a username and password for a bearer token.
func Login(accounts *auth.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		if req.Username == "" || req.Password == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Username and password are required")
			return
		}

		session, err := accounts.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
			User:      toUserResponse(session.User),
		})
	}
}

// GetUser returns the public profile of an account. Any authenticated caller
// may look users up, which is how share targets are resolved by id.
func GetUser(accounts *auth.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := accounts.User(r.Context(), mux.Vars(r)["userId"])
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}
