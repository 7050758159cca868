package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"finance-bot/internal/model"
)

// ExpenseRow is an expense joined with its category name for listings.
type ExpenseRow struct {
	ID           uint
	Amount       float64
	Description  string
	CategoryName string
	DateAdded    time.Time
}

// ExpenseRepository handles CRUD for expense records with the same owner
// scoping rules as IncomeRepository.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	if !validAmount(expense.Amount) {
		return ErrInvalidAmount
	}
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// ListRecent returns the newest records for the owner joined with category
// names, id descending.
func (r *ExpenseRepository) ListRecent(ctx context.Context, clientID uint, limit int) ([]ExpenseRow, error) {
	var rows []ExpenseRow
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("expenses.id, expenses.amount, expenses.description, categories.name AS category_name, expenses.date_added").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.client_id = ?", clientID).
		Order("expenses.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ExpenseRepository) FindOwned(ctx context.Context, expenseID, clientID uint) (*model.Expense, error) {
	var expense model.Expense
	err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", expenseID, clientID).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find expense: %w", err)
	}
	return &expense, nil
}

// Update replaces amount, description and category. Ownership must already
// have been checked through FindOwned.
func (r *ExpenseRepository) Update(ctx context.Context, expenseID uint, amount float64, description string, categoryID uint) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Where("id = ?", expenseID).
		Updates(map[string]interface{}{
			"amount":      amount,
			"description": description,
			"category_id": categoryID,
		}).Error
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, expenseID, clientID uint) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", expenseID, clientID).
		Delete(&model.Expense{}).Error; err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
