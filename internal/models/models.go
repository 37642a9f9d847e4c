package models

import "time"

// SystemAuthor is the sentinel author used for server-generated messages.
// It bypasses the ban check but not the moderation screen.
const SystemAuthor = "SYSTEM"

type User struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Name        string    `json:"name"`
	Role        string    `json:"role"` // "student" or "tutor"
	Description string    `json:"description"`
	Languages   []string  `json:"languages"`
	State       string    `json:"state"`
	GPA         float64   `json:"gpa"`
	Teaches     []string  `json:"teaches"`
	Rating      float64   `json:"rating"`
	Violations  int       `json:"-"`
	Banned      bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chat is the durable two-participant conversation record. Participants
// are an unordered pair of display names; a pair identifies at most one
// chat.
type Chat struct {
	ChatID       int64     `json:"chat_id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

type Message struct {
	ChatID    int64     `json:"chat_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the stable user identity attached to a live connection,
// resolved once at authentication time.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
