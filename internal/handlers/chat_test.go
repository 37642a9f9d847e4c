package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voluntor/voluntor/internal/models"
)

func TestCreateChat(t *testing.T) {
	env := newTestEnv(t)
	h := &ChatHandler{Store: env.store, Gateway: env.gateway, Logger: zap.NewNop()}

	alice := env.createUser(t, "alice@example.com", "Alice", "student", "x")
	tutor := env.createUser(t, "bob@example.com", "Bob", "tutor", "x")

	create := func() *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"tutor_id":%d}`, tutor.ID)
		req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(body))
		env.authorize(t, req, alice)
		return env.serveAuthed(h.CreateChat, req)
	}

	rec := create()
	require.Equal(t, http.StatusOK, rec.Code)

	var first models.Chat
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.NotZero(t, first.ChatID)

	// Repeating the request resolves to the same chat.
	rec = create()
	require.Equal(t, http.StatusOK, rec.Code)
	var second models.Chat
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, first.ChatID, second.ChatID)
}

func TestCreateChatUnknownTutor(t *testing.T) {
	env := newTestEnv(t)
	h := &ChatHandler{Store: env.store, Gateway: env.gateway, Logger: zap.NewNop()}
	alice := env.createUser(t, "alice@example.com", "Alice", "student", "x")

	req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(`{"tutor_id":999}`))
	env.authorize(t, req, alice)
	rec := env.serveAuthed(h.CreateChat, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChatsSkipsStaleIDs(t *testing.T) {
	env := newTestEnv(t)
	h := &ChatHandler{Store: env.store, Gateway: env.gateway, Logger: zap.NewNop()}

	alice := env.createUser(t, "alice@example.com", "Alice", "student", "x")
	env.createUser(t, "bob@example.com", "Bob", "tutor", "x")

	created, err := env.gateway.CreateChat(
		models.Identity{Email: "alice@example.com", Name: "Alice"},
		models.Identity{Email: "bob@example.com", Name: "Bob"},
	)
	require.NoError(t, err)

	// A chat id on the user record with no chat row behind it.
	require.NoError(t, env.store.PushChatID("alice@example.com", 999999))

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	env.authorize(t, req, alice)
	rec := env.serveAuthed(h.GetChats, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []chatSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, created.ChatID, summaries[0].ChatID)
}

func TestGetChatMessages(t *testing.T) {
	env := newTestEnv(t)
	h := &ChatHandler{Store: env.store, Gateway: env.gateway, Logger: zap.NewNop()}
	alice := env.createUser(t, "alice@example.com", "Alice", "student", "x")

	require.NoError(t, env.gateway.HandleSend("", models.Message{
		ChatID: 7, Author: "alice@example.com", Content: "hello",
	}))

	r := mux.NewRouter()
	r.Handle("/api/chats/{id}/messages", env.serveVia(h.GetChatMessages))

	req := httptest.NewRequest(http.MethodGet, "/api/chats/7/messages", nil)
	env.authorize(t, req, alice)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["messages"], 1)
	assert.Equal(t, "hello", resp["messages"][0].Content)

	req = httptest.NewRequest(http.MethodGet, "/api/chats/notanumber/messages", nil)
	env.authorize(t, req, alice)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRejections(t *testing.T) {
	env := newTestEnv(t)
	h := &ChatHandler{Store: env.store, Gateway: env.gateway, Logger: zap.NewNop()}
	alice := env.createUser(t, "alice@example.com", "Alice", "student", "x")

	send := func(content string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]any{"chat_id": 7, "content": content})
		req := httptest.NewRequest(http.MethodPost, "/api/chats/send", bytes.NewReader(body))
		env.authorize(t, req, alice)
		return env.serveAuthed(h.Send, req)
	}

	assert.Equal(t, http.StatusOK, send("hello").Code)

	rec := send("this is crap")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "content_rejected", resp["reason"])

	require.NoError(t, env.store.SetBanned("alice@example.com", true))
	assert.Equal(t, http.StatusForbidden, send("hello again").Code)
}

func TestUploadAndServe(t *testing.T) {
	env := newTestEnv(t)
	h := &ChatHandler{Store: env.store, Gateway: env.gateway, Logger: zap.NewNop(), UploadDir: t.TempDir()}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	part.Write([]byte("chapter one"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	name := strings.TrimPrefix(resp["file_url"], "uploads/")
	require.NotEmpty(t, name)

	stored, err := os.ReadFile(filepath.Join(h.UploadDir, name))
	require.NoError(t, err)
	assert.Equal(t, "chapter one", string(stored))

	r := mux.NewRouter()
	r.HandleFunc("/api/uploads/{filename}", h.ServeUpload)

	req = httptest.NewRequest(http.MethodGet, "/api/uploads/"+name, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chapter one", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/uploads/no-such-file", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
