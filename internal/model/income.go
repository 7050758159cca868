package model

import "time"

// Income is a single income record owned by one user.
type Income struct {
	ID          uint    `gorm:"primaryKey"`
	Amount      float64 `gorm:"not null"`
	Description string
	DateAdded   time.Time `gorm:"autoCreateTime"`
	ClientID    uint      `gorm:"index"`
}

func (Income) TableName() string { return "incomes" }
