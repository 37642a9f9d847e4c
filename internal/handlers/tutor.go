package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/voluntor/voluntor/internal/middleware"
	"github.com/voluntor/voluntor/internal/store"
)

const tutorSearchLimit = 10

type TutorHandler struct {
	Store store.Store
}

// SearchTutors finds tutors by subject. Subjects are matched lowercase
// ("math", not "Math").
func (h *TutorHandler) SearchTutors(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Subject == "" {
		json.NewEncoder(w).Encode([]any{})
		return
	}

	tutors, err := h.Store.SearchTutors(req.Subject, tutorSearchLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(tutors)
}

func (h *TutorHandler) GetTutor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid tutor id", http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByID(id)
	if err != nil || user.Role != "tutor" {
		http.Error(w, "Tutor not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(user)
}

// GetProfile returns the caller's own profile.
func (h *TutorHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Store.GetUserByEmail(identity.Email)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(user)
}

// UpdateProfile applies the user-editable profile fields.
func (h *TutorHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Languages   []string `json:"languages"`
		State       string   `json:"state"`
		GPA         float64  `json:"gpa"`
		Teaches     []string `json:"teaches"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByEmail(identity.Email)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	user.Description = req.Description
	user.Languages = req.Languages
	user.State = req.State
	user.GPA = req.GPA
	user.Teaches = req.Teaches

	if err := h.Store.UpdateProfile(user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Profile updated"})
}
