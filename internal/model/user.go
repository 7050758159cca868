package model

import "time"

// User stores a Telegram account known to the bot. The table keeps the
// historical name "clients" from the first schema revision.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	CreatedAt  time.Time
}

func (User) TableName() string { return "clients" }
