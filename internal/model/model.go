package model

import "time"

type Role int

const (
	RoleUser    Role = 1
	RoleManager Role = 2
	RoleAdmin   Role = 3
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleManager || r == RoleAdmin
}

// TaskStatus tracks one broadcast attempt's lifecycle.
// Sending is entered before fan-out; Completed means fan-out ran to the end
// (regardless of per-channel outcomes); Failed means the attempt itself aborted.
type TaskStatus int

const (
	TaskSending   TaskStatus = 1
	TaskFailed    TaskStatus = 2
	TaskCompleted TaskStatus = 3
)

func (s TaskStatus) String() string {
	switch s {
	case TaskSending:
		return "sending"
	case TaskFailed:
		return "failed"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// User is an operator account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Fullname     string    `json:"fullname"`
	PasswordHash string    `json:"-"`
	TeleUser     string    `json:"tele_user"`
	Role         Role      `json:"role"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    string    `json:"created_by,omitempty"`
}

// Channel is a named Telegram destination with a daily operating window.
// Address is the raw transport identifier (numeric chat id or @username).
type Channel struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	WorkStart TimeOfDay `json:"work_start"`
	WorkEnd   TimeOfDay `json:"work_end"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`

	// CreatedName is joined from the users table for list views; not stored.
	CreatedName string `json:"created_name,omitempty"`
}

// Task is the durable record of one broadcast request and its lifecycle.
// Channels holds the requested channel addresses in request order.
type Task struct {
	ID        string     `json:"id"`
	SearchKey string     `json:"search_key"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"image_url,omitempty"`
	Channels  []string   `json:"channels"`
	Status    TaskStatus `json:"status"`
	Deleted   bool       `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    time.Time  `json:"sent_at"`
	CreatedBy string     `json:"created_by,omitempty"`

	// Joined for list views; not stored.
	CreatedName string    `json:"created_name,omitempty"`
	Groups      []Channel `json:"groups,omitempty"`
}

// DirectoryEntry maps a Telegram username to the private chat id the bot may
// message. Entries are replaced wholesale by the sheet sync.
type DirectoryEntry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	ChatID    string    `json:"chat_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchKey is a free-text label operators attach to broadcasts.
type SearchKey struct {
	ID        string    `json:"id"`
	Key       string    `json:"search_key"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`

	CreatedName string `json:"created_name,omitempty"`
}
