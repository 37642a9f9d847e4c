package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluntor/voluntor/internal/models"
)

func TestSearchTutors(t *testing.T) {
	env := newTestEnv(t)
	h := &TutorHandler{Store: env.store}

	tutor := env.createUser(t, "bob@example.com", "Bob", "tutor", "x")
	tutor.Teaches = []string{"math", "physics"}
	require.NoError(t, env.store.UpdateProfile(tutor))
	env.createUser(t, "carol@example.com", "Carol", "tutor", "x")

	search := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/tutors/search", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.SearchTutors(rec, req)
		return rec
	}

	rec := search(`{"subject":"math"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tutors []models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tutors))
	require.Len(t, tutors, 1)
	assert.Equal(t, "Bob", tutors[0].Name)

	rec = search(`{"subject":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetTutor(t *testing.T) {
	env := newTestEnv(t)
	h := &TutorHandler{Store: env.store}

	tutor := env.createUser(t, "bob@example.com", "Bob", "tutor", "x")
	student := env.createUser(t, "alice@example.com", "Alice", "student", "x")

	r := mux.NewRouter()
	r.HandleFunc("/api/tutors/{id}", h.GetTutor)

	get := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/tutors/"+id, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := get(fmt.Sprint(tutor.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Bob", got.Name)

	// Students are not served from the tutor endpoint.
	assert.Equal(t, http.StatusNotFound, get(fmt.Sprint(student.ID)).Code)
	assert.Equal(t, http.StatusNotFound, get("12345").Code)
	assert.Equal(t, http.StatusBadRequest, get("abc").Code)
}

func TestProfileRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	h := &TutorHandler{Store: env.store}
	bob := env.createUser(t, "bob@example.com", "Bob", "tutor", "x")

	body := `{"description":"Calculus tutor","languages":["en","fr"],"state":"CA","gpa":3.8,"teaches":["math"]}`
	req := httptest.NewRequest(http.MethodPut, "/api/user", strings.NewReader(body))
	env.authorize(t, req, bob)
	rec := env.serveAuthed(h.UpdateProfile, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/user", nil)
	env.authorize(t, req, bob)
	rec = env.serveAuthed(h.GetProfile, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, "Calculus tutor", profile.Description)
	assert.Equal(t, []string{"en", "fr"}, profile.Languages)
	assert.Equal(t, "CA", profile.State)
	assert.Equal(t, []string{"math"}, profile.Teaches)
	assert.Equal(t, "Bob", profile.Name, "name unchanged when omitted")
}
