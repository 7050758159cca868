package model

import "time"

// Category groups expenses for reporting. Names are unique and
// case-sensitive; categories are never deleted or renamed.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	Expenses  []Expense `gorm:"foreignKey:CategoryID"`
}

func (Category) TableName() string { return "categories" }
