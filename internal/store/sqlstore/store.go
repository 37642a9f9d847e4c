package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/voluntor/voluntor/internal/models"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		description TEXT NOT NULL DEFAULT '',
		languages TEXT NOT NULL DEFAULT 'en',
		state TEXT NOT NULL DEFAULT '',
		gpa REAL NOT NULL DEFAULT 0,
		teaches TEXT NOT NULL DEFAULT '',
		rating REAL NOT NULL DEFAULT 2.5,
		violations INTEGER NOT NULL DEFAULT 0,
		banned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chats (
		chat_id BIGINT PRIMARY KEY,
		participant_low TEXT NOT NULL,
		participant_high TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (participant_low, participant_high)
	);

	CREATE TABLE IF NOT EXISTS user_chats (
		user_id INTEGER NOT NULL,
		chat_id BIGINT NOT NULL,
		PRIMARY KEY (user_id, chat_id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id BIGINT NOT NULL,
		author TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

// orderPair normalizes a participant pair so the same two names always
// hit the same chat row regardless of argument order.
func orderPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind(`INSERT INTO users
		(email, password, name, role, description, languages, state, gpa, teaches, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	languages := user.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	_, err := s.db.Exec(query, user.Email, user.Password, user.Name, user.Role,
		user.Description, joinList(languages), user.State, user.GPA,
		joinList(user.Teaches), user.Rating)
	return err
}

const userColumns = `id, email, password, name, role, description, languages, state, gpa, teaches, rating, violations, banned, created_at`

func (s *SQLStore) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var languages, teaches string
	err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Name, &user.Role,
		&user.Description, &languages, &user.State, &user.GPA, &teaches,
		&user.Rating, &user.Violations, &user.Banned, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Languages = splitList(languages)
	user.Teaches = splitList(teaches)
	return &user, nil
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE email = ?")
	return s.scanUser(s.db.QueryRow(query, email))
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	return s.scanUser(s.db.QueryRow(query, id))
}

func (s *SQLStore) UpdateProfile(user *models.User) error {
	query := s.rebind(`UPDATE users SET
		name = ?, description = ?, languages = ?, state = ?, gpa = ?, teaches = ?
		WHERE email = ?`)
	result, err := s.db.Exec(query, user.Name, user.Description, joinList(user.Languages),
		user.State, user.GPA, joinList(user.Teaches), user.Email)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("no user with email %s", user.Email)
	}
	return nil
}

// SearchTutors matches tutors teaching the given subject. Subjects are
// stored lowercase and comma separated.
func (s *SQLStore) SearchTutors(subject string, limit int) ([]models.User, error) {
	query := s.rebind(`
		SELECT id, name, description, gpa, rating, teaches
		FROM users
		WHERE role = 'tutor' AND (',' || teaches || ',') LIKE ?
		LIMIT ?
	`)
	rows, err := s.db.Query(query, "%,"+strings.ToLower(subject)+",%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tutors []models.User
	for rows.Next() {
		var u models.User
		var teaches string
		if err := rows.Scan(&u.ID, &u.Name, &u.Description, &u.GPA, &u.Rating, &teaches); err != nil {
			return nil, err
		}
		u.Role = "tutor"
		u.Teaches = splitList(teaches)
		tutors = append(tutors, u)
	}
	return tutors, rows.Err()
}

func (s *SQLStore) IncrementViolationCount(email string) (int, error) {
	query := s.rebind("UPDATE users SET violations = violations + 1 WHERE email = ?")
	result, err := s.db.Exec(query, email)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, fmt.Errorf("no user with email %s", email)
	}

	var count int
	query = s.rebind("SELECT violations FROM users WHERE email = ?")
	err = s.db.QueryRow(query, email).Scan(&count)
	return count, err
}

func (s *SQLStore) SetBanned(email string, banned bool) error {
	query := s.rebind("UPDATE users SET banned = ? WHERE email = ?")
	_, err := s.db.Exec(query, banned, email)
	return err
}

func (s *SQLStore) IsBanned(email string) (bool, error) {
	var banned bool
	query := s.rebind("SELECT banned FROM users WHERE email = ?")
	err := s.db.QueryRow(query, email).Scan(&banned)
	return banned, err
}

func (s *SQLStore) PushChatID(email string, chatID int64) error {
	query := s.rebind("INSERT INTO user_chats (user_id, chat_id) SELECT id, ? FROM users WHERE email = ?")
	result, err := s.db.Exec(query, chatID, email)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("no user with email %s", email)
	}
	return nil
}

func (s *SQLStore) GetUserChatIDs(email string) ([]int64, error) {
	query := s.rebind(`
		SELECT uc.chat_id
		FROM user_chats uc
		JOIN users u ON u.id = uc.user_id
		WHERE u.email = ?
	`)
	rows, err := s.db.Query(query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) FindChatByParticipants(nameA, nameB string) (*models.Chat, error) {
	low, high := orderPair(nameA, nameB)
	var chat models.Chat
	query := s.rebind("SELECT chat_id, participant_low, participant_high, created_at FROM chats WHERE participant_low = ? AND participant_high = ?")
	err := s.db.QueryRow(query, low, high).Scan(&chat.ChatID, &chat.Participants[0], &chat.Participants[1], &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLStore) GetChatByID(chatID int64) (*models.Chat, error) {
	var chat models.Chat
	query := s.rebind("SELECT chat_id, participant_low, participant_high, created_at FROM chats WHERE chat_id = ?")
	err := s.db.QueryRow(query, chatID).Scan(&chat.ChatID, &chat.Participants[0], &chat.Participants[1], &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLStore) InsertChat(chat *models.Chat) error {
	low, high := orderPair(chat.Participants[0], chat.Participants[1])
	query := s.rebind("INSERT INTO chats (chat_id, participant_low, participant_high, created_at) VALUES (?, ?, ?, ?)")
	_, err := s.db.Exec(query, chat.ChatID, low, high, chat.CreatedAt)
	return err
}

func (s *SQLStore) AppendMessage(msg *models.Message) error {
	query := s.rebind("INSERT INTO messages (chat_id, author, content, created_at) VALUES (?, ?, ?, ?)")
	_, err := s.db.Exec(query, msg.ChatID, msg.Author, msg.Content, msg.CreatedAt)
	return err
}

func (s *SQLStore) ListMessages(chatID int64) ([]models.Message, error) {
	query := s.rebind(`
		SELECT chat_id, author, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC
	`)
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ChatID, &m.Author, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
