package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"finance-bot/internal/model"
)

// IncomeRepository handles CRUD for income records. Every read, update and
// delete is scoped by owner; a foreign record is indistinguishable from a
// missing one.
type IncomeRepository struct {
	db *gorm.DB
}

func NewIncomeRepository(db *gorm.DB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

func (r *IncomeRepository) Create(ctx context.Context, income *model.Income) error {
	if !validAmount(income.Amount) {
		return ErrInvalidAmount
	}
	if err := r.db.WithContext(ctx).Create(income).Error; err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	return nil
}

// ListRecent returns the newest records for the owner, id descending.
func (r *IncomeRepository) ListRecent(ctx context.Context, clientID uint, limit int) ([]model.Income, error) {
	var incomes []model.Income
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("id DESC").
		Limit(limit).
		Find(&incomes).Error; err != nil {
		return nil, err
	}
	return incomes, nil
}

// FindOwned returns the record only when it belongs to the given owner.
func (r *IncomeRepository) FindOwned(ctx context.Context, incomeID, clientID uint) (*model.Income, error) {
	var income model.Income
	err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", incomeID, clientID).First(&income).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find income: %w", err)
	}
	return &income, nil
}

// Update replaces amount and description. Ownership must already have been
// checked through FindOwned.
func (r *IncomeRepository) Update(ctx context.Context, incomeID uint, amount float64, description string) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	err := r.db.WithContext(ctx).Model(&model.Income{}).
		Where("id = ?", incomeID).
		Updates(map[string]interface{}{"amount": amount, "description": description}).Error
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return nil
}

// Delete removes the record when the ownership predicate matches. Deleting
// a missing or foreign record affects zero rows and is not an error.
func (r *IncomeRepository) Delete(ctx context.Context, incomeID, clientID uint) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", incomeID, clientID).
		Delete(&model.Income{}).Error; err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return nil
}
