package chat

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/voluntor/voluntor/internal/models"
	"github.com/voluntor/voluntor/internal/moderation"
	"github.com/voluntor/voluntor/internal/store"
)

// violationThreshold is the number of recorded moderation flags past
// which an account is banned.
const violationThreshold = 5

// chatIDSpace matches the id range handed out to clients.
const chatIDSpace = 10_000_000

const maxChatIDAttempts = 5

// PushEvent is the server-to-client push carrying a newly persisted
// message.
type PushEvent struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// Gateway is the only component touching both the durable store and the
// live registry/router. It enforces persist-then-broadcast ordering: a
// message that failed to persist is never delivered live, so anything a
// recipient sees can also be fetched from history later.
type Gateway struct {
	registry *Registry
	router   *Router
	store    store.Store
	screen   moderation.Screen
	logger   *zap.Logger
	metrics  *Metrics

	// newChatID is swappable in tests.
	newChatID func() int64
}

func NewGateway(registry *Registry, router *Router, st store.Store, screen moderation.Screen, logger *zap.Logger, metrics *Metrics) *Gateway {
	return &Gateway{
		registry:  registry,
		router:    router,
		store:     st,
		screen:    screen,
		logger:    logger,
		metrics:   metrics,
		newChatID: func() int64 { return rand.Int63n(chatIDSpace) },
	}
}

// HandleConnect registers a freshly accepted connection.
func (g *Gateway) HandleConnect(connID string) error {
	if err := g.registry.Register(connID); err != nil {
		g.logger.Error("connection rejected", zap.String("conn", connID), zap.Error(err))
		return err
	}
	g.metrics.connOpened()
	g.logger.Info("connection opened", zap.String("conn", connID))
	return nil
}

// HandleJoin moves the connection into the chat's room. Membership is a
// live-delivery concern only; nothing is persisted.
func (g *Gateway) HandleJoin(connID string, chatID int64) error {
	if err := g.registry.Join(connID, chatID); err != nil {
		return err
	}
	g.metrics.recordJoin()
	g.logger.Debug("joined room", zap.String("conn", connID), zap.Int64("chat", chatID))
	return nil
}

// HandleDisconnect deregisters the connection. Both explicit disconnects
// and transport-level connection loss route through here; calling it
// twice is harmless.
func (g *Gateway) HandleDisconnect(connID string) {
	if g.registry.Deregister(connID) {
		g.metrics.connClosed()
		g.logger.Info("connection closed", zap.String("conn", connID))
	}
}

// HandleSend screens, persists, then broadcasts msg to the other members
// of its chat. connID identifies the sending connection and is excluded
// from delivery; it is empty for sends arriving over the REST surface.
func (g *Gateway) HandleSend(connID string, msg models.Message) error {
	if g.screen.ContainsViolation(msg.Content) {
		g.recordViolation(msg.Author)
		g.metrics.recordReject("content_rejected")
		return ErrContentRejected
	}

	if msg.Author != models.SystemAuthor {
		banned, err := g.store.IsBanned(msg.Author)
		if err != nil {
			g.metrics.recordReject("persistence_failed")
			return fmt.Errorf("%w: ban check: %v", ErrPersistenceFailed, err)
		}
		if banned {
			g.metrics.recordReject("sender_banned")
			g.logger.Info("send rejected, sender banned", zap.String("author", msg.Author))
			return ErrSenderBanned
		}
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if err := g.store.AppendMessage(&msg); err != nil {
		g.metrics.recordReject("persistence_failed")
		g.logger.Warn("message persistence failed", zap.Int64("chat", msg.ChatID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	payload, err := json.Marshal(PushEvent{Type: "message", Message: msg})
	if err != nil {
		return fmt.Errorf("encode push event: %w", err)
	}
	delivered := g.router.Broadcast(msg.ChatID, payload, connID)
	g.metrics.recordSend(delivered)
	return nil
}

// recordViolation bumps the author's moderation counter and bans the
// account once the count passes the threshold. Counter failures are
// logged, not surfaced: the send is rejected either way.
func (g *Gateway) recordViolation(author string) {
	count, err := g.store.IncrementViolationCount(author)
	if err != nil {
		g.logger.Warn("violation count update failed", zap.String("author", author), zap.Error(err))
		return
	}
	g.logger.Info("content violation recorded", zap.String("author", author), zap.Int("count", count))
	if count > violationThreshold {
		if err := g.store.SetBanned(author, true); err != nil {
			g.logger.Error("ban update failed", zap.String("author", author), zap.Error(err))
			return
		}
		g.logger.Warn("account banned", zap.String("author", author), zap.Int("violations", count))
	}
}

// CreateChat returns the existing chat between the two participants, or
// creates a new one and appends its id to both users' chat lists. The
// participant lookup is unordered: CreateChat(a, b) and CreateChat(b, a)
// resolve to the same chat. The chat insert and the two participant
// updates are not atomic across the store; if a participant update
// fails the chat is still returned alongside a PartialChatCreationError
// naming the identities left to retry.
func (g *Gateway) CreateChat(a, b models.Identity) (*models.Chat, error) {
	existing, err := g.store.FindChatByParticipants(a.Name, b.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: chat lookup: %v", ErrPersistenceFailed, err)
	}
	if existing != nil {
		return existing, nil
	}

	chatID, err := g.freshChatID()
	if err != nil {
		return nil, err
	}

	chat := &models.Chat{
		ChatID:       chatID,
		Participants: [2]string{a.Name, b.Name},
		CreatedAt:    time.Now(),
	}
	if err := g.store.InsertChat(chat); err != nil {
		return nil, fmt.Errorf("%w: insert chat: %v", ErrPersistenceFailed, err)
	}
	g.metrics.recordChatCreated()

	var missing []string
	var lastErr error
	for _, id := range []models.Identity{a, b} {
		if err := g.store.PushChatID(id.Email, chatID); err != nil {
			missing = append(missing, id.Email)
			lastErr = err
		}
	}
	if len(missing) > 0 {
		g.logger.Error("chat creation left participant lists inconsistent",
			zap.Int64("chat", chatID),
			zap.Strings("missing", missing),
			zap.Error(lastErr))
		return chat, &PartialChatCreationError{ChatID: chatID, Missing: missing, Err: lastErr}
	}

	g.logger.Info("chat created", zap.Int64("chat", chatID),
		zap.String("participant_a", a.Name), zap.String("participant_b", b.Name))
	return chat, nil
}

// freshChatID draws random ids until one is unused in the store.
func (g *Gateway) freshChatID() (int64, error) {
	for attempt := 0; attempt < maxChatIDAttempts; attempt++ {
		id := g.newChatID()
		existing, err := g.store.GetChatByID(id)
		if err != nil {
			return 0, fmt.Errorf("%w: chat id check: %v", ErrPersistenceFailed, err)
		}
		if existing == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no unused chat id after %d attempts", maxChatIDAttempts)
}
