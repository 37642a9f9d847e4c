package store

import "github.com/voluntor/voluntor/internal/models"

// UserStore is the account collaborator: profiles, moderation counters
// and each user's list of chat ids.
type UserStore interface {
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	UpdateProfile(user *models.User) error
	SearchTutors(subject string, limit int) ([]models.User, error)

	// IncrementViolationCount bumps the user's moderation counter and
	// returns the new count.
	IncrementViolationCount(email string) (int, error)
	SetBanned(email string, banned bool) error
	IsBanned(email string) (bool, error)

	PushChatID(email string, chatID int64) error
	GetUserChatIDs(email string) ([]int64, error)
}

// ChatStore is the durable, append-only message store consumed by the
// gateway. Lookups that find nothing return (nil, nil).
type ChatStore interface {
	FindChatByParticipants(nameA, nameB string) (*models.Chat, error)
	GetChatByID(chatID int64) (*models.Chat, error)
	InsertChat(chat *models.Chat) error
	AppendMessage(msg *models.Message) error
	ListMessages(chatID int64) ([]models.Message, error)
}

type Store interface {
	UserStore
	ChatStore
}
