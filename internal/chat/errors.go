package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateConnection means a connection id was registered twice.
	// It indicates an id-generation defect and is fatal to that connect
	// attempt only.
	ErrDuplicateConnection = errors.New("chat: connection id already registered")

	// ErrUnknownConnection means an operation referenced a connection
	// that is not currently registered, typically a late event arriving
	// after disconnect.
	ErrUnknownConnection = errors.New("chat: unknown connection")

	// ErrContentRejected is a policy rejection from the moderation screen.
	ErrContentRejected = errors.New("chat: content rejected")

	// ErrSenderBanned rejects a send from a banned account.
	ErrSenderBanned = errors.New("chat: sender is banned")

	// ErrPersistenceFailed wraps a store error on the send path. The
	// message was not broadcast and the sender may retry.
	ErrPersistenceFailed = errors.New("chat: message persistence failed")
)

// PartialChatCreationError reports a chat creation that left the store
// half-updated: the chat record exists but one or both participants'
// chat-id lists were not updated. Missing holds the identities whose
// update failed so the caller can retry just those pushes against the
// same chat id.
type PartialChatCreationError struct {
	ChatID  int64
	Missing []string
	Err     error
}

func (e *PartialChatCreationError) Error() string {
	return fmt.Sprintf("chat %d created but participant updates failed for %v: %v", e.ChatID, e.Missing, e.Err)
}

func (e *PartialChatCreationError) Unwrap() error { return e.Err }

// ReasonCode maps a gateway error to the reject reason reported to the
// client.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrContentRejected):
		return "content_rejected"
	case errors.Is(err, ErrSenderBanned):
		return "sender_banned"
	case errors.Is(err, ErrPersistenceFailed):
		return "persistence_failed"
	case errors.Is(err, ErrUnknownConnection):
		return "unknown_connection"
	case errors.Is(err, ErrDuplicateConnection):
		return "duplicate_connection"
	default:
		return "internal"
	}
}
