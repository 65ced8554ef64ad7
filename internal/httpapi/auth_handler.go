package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/tokens"
)

// UserStore is the slice of the repository the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, role string) (int64, error)
	FindUserByEmail(ctx context.Context, email string) (*repository.UserRecord, error)
}

type AuthHandler struct {
	Users  UserStore
	Tokens tokens.Store
}

func NewAuthHandler(users UserStore, store tokens.Store) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: store}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}
	if req.Role == "" {
		req.Role = "customer"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("hash password error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register")
		return
	}

	if _, err := h.Users.CreateUser(r.Context(), req.Email, string(hash), req.Role); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email_taken", "Email already exists")
			return
		}
		log.Printf("create user error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// POST /login
//
// Wrong email and wrong password answer identically; the response must not
// reveal which half was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	record, err := h.Users.FindUserByEmail(r.Context(), req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}
	if err != nil {
		log.Printf("find user error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to log in")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	user := domain.User{ID: record.ID, Email: record.Email, Role: record.Role}
	token, err := h.Tokens.Issue(r.Context(), user)
	if err != nil {
		log.Printf("issue token error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// GET /identity (bearer-authenticated)
func (h *AuthHandler) Identity(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	respondJSON(w, http.StatusOK, map[string]domain.User{"user": *user})
}

// POST /logout (bearer-authenticated, best-effort for the client)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())
	if token != "" {
		if err := h.Tokens.Revoke(r.Context(), token); err != nil {
			log.Printf("revoke token error: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
