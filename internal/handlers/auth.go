package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/voluntor/voluntor/internal/auth"
	"github.com/voluntor/voluntor/internal/email"
	"github.com/voluntor/voluntor/internal/models"
	"github.com/voluntor/voluntor/internal/store"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Store    store.Store
	Verifier *auth.Verifier
	Email    *email.Sender
	Logger   *zap.Logger
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	type SignupRequest struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		IsTutor   bool   `json:"is_tutor"`
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	if existing, err := h.Store.GetUserByEmail(req.Email); err == nil && existing != nil {
		http.Error(w, "User already exists", http.StatusConflict)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	role := "student"
	if req.IsTutor {
		role = "tutor"
	}
	user := &models.User{
		Email:     req.Email,
		Password:  string(hashedPassword),
		Name:      req.FirstName + " " + req.LastName,
		Role:      role,
		Languages: []string{"en"},
		Rating:    2.5,
	}

	if err := h.Store.CreateUser(user); err != nil {
		http.Error(w, "Could not create account", http.StatusConflict)
		return
	}

	if h.Email != nil {
		if err := h.Email.SendWelcomeEmail(user.Email, user.Name, user.Role); err != nil {
			h.Logger.Warn("welcome email failed", zap.String("email", user.Email), zap.Error(err))
		}
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "Signup successful"})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByEmail(creds.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user.Banned {
		http.Error(w, "Account banned", http.StatusForbidden)
		return
	}

	token, err := h.Verifier.Issue(models.Identity{Email: user.Email, Name: user.Name})
	if err != nil {
		h.Logger.Error("credential issue failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"message": "Login successful",
		"token":   token,
		"email":   user.Email,
		"name":    user.Name,
		"role":    user.Role,
	})
}
