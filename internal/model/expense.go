package model

import "time"

// Expense is a single expense record owned by one user and tagged with
// exactly one category.
type Expense struct {
	ID          uint    `gorm:"primaryKey"`
	Amount      float64 `gorm:"not null"`
	Description string
	DateAdded   time.Time `gorm:"autoCreateTime"`
	CategoryID  uint      `gorm:"index"`
	ClientID    uint      `gorm:"index"`
}

func (Expense) TableName() string { return "expenses" }
