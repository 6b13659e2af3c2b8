package models

import "time"

// Member is the directory read-model used to render names and reach people.
type Member struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	TelegramChatID int64     `json:"-" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
