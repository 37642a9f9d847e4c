package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voluntor/voluntor/internal/chat"
	"github.com/voluntor/voluntor/internal/middleware"
	"github.com/voluntor/voluntor/internal/models"
	"github.com/voluntor/voluntor/internal/store"
)

type ChatHandler struct {
	Store     store.Store
	Gateway   *chat.Gateway
	Logger    *zap.Logger
	UploadDir string
}

type chatSummary struct {
	ChatID       int64     `json:"chat_id"`
	Participants [2]string `json:"participants"`
}

// CreateChat starts (or returns the existing) chat between the caller
// and a tutor.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		TutorID int `json:"tutor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tutor, err := h.Store.GetUserByID(req.TutorID)
	if err != nil {
		http.Error(w, "Tutor not found", http.StatusNotFound)
		return
	}

	created, err := h.Gateway.CreateChat(identity, models.Identity{Email: tutor.Email, Name: tutor.Name})
	var partial *chat.PartialChatCreationError
	if errors.As(err, &partial) {
		// The chat exists; tell the caller which half to retry.
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Chat created but not fully recorded, retry",
			"chat_id": partial.ChatID,
			"missing": partial.Missing,
		})
		return
	}
	if err != nil {
		h.Logger.Error("chat creation failed", zap.Error(err))
		http.Error(w, "Could not create chat", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(created)
}

// GetChats lists the caller's chat ids with their participant pairs.
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ids, err := h.Store.GetUserChatIDs(identity.Email)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]chatSummary, 0, len(ids))
	for _, id := range ids {
		c, err := h.Store.GetChatByID(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if c == nil {
			// Stale id on the user record; skip it.
			continue
		}
		summaries = append(summaries, chatSummary{ChatID: c.ChatID, Participants: c.Participants})
	}
	json.NewEncoder(w).Encode(summaries)
}

func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chatID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}

	messages, err := h.Store.ListMessages(chatID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string][]models.Message{"messages": messages})
}

// Send is the request/response send path. It runs the same gateway
// pipeline as a websocket send; the live broadcast excludes nobody
// because no connection is associated with the request.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ChatID    int64     `json:"chat_id"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := models.Message{
		ChatID:    req.ChatID,
		Author:    identity.Email,
		Content:   req.Content,
		CreatedAt: req.CreatedAt,
	}
	if err := h.Gateway.HandleSend("", msg); err != nil {
		writeSendError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Success"})
}

func writeSendError(w http.ResponseWriter, err error) {
	reason := chat.ReasonCode(err)
	status := http.StatusInternalServerError
	switch reason {
	case "content_rejected":
		status = http.StatusBadRequest
	case "sender_banned":
		status = http.StatusForbidden
	case "persistence_failed":
		status = http.StatusBadGateway
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": "Send rejected", "reason": reason})
}

// Upload stores a chat attachment on disk under a fresh name and
// returns the URL it will be served from.
func (h *ChatHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(header.Filename))
	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"file_url": "uploads/" + name})
}

// ServeUpload returns a previously uploaded attachment.
func (h *ChatHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := filepath.Base(vars["filename"]) // no path traversal
	path := filepath.Join(h.UploadDir, name)

	if _, err := os.Stat(path); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}
