package service

import (
	"context"

	"finance-bot/internal/model"
	"finance-bot/internal/repository"
)

// RecordService wraps income/expense/category business logic: amount
// validation, ownership gating before edit and delete, category lookup by
// name (the only way categories are referenced from user input).
type RecordService struct {
	incomeRepo   *repository.IncomeRepository
	expenseRepo  *repository.ExpenseRepository
	categoryRepo *repository.CategoryRepository
}

func NewRecordService(incomeRepo *repository.IncomeRepository, expenseRepo *repository.ExpenseRepository, categoryRepo *repository.CategoryRepository) *RecordService {
	return &RecordService{incomeRepo: incomeRepo, expenseRepo: expenseRepo, categoryRepo: categoryRepo}
}

func (s *RecordService) AddIncome(ctx context.Context, user *model.User, amount float64, description string) (*model.Income, error) {
	income := model.Income{
		Amount:      amount,
		Description: description,
		ClientID:    user.ID,
	}
	if err := s.incomeRepo.Create(ctx, &income); err != nil {
		return nil, err
	}
	return &income, nil
}

func (s *RecordService) AddExpense(ctx context.Context, user *model.User, amount float64, description string, categoryID uint) (*model.Expense, error) {
	expense := model.Expense{
		Amount:      amount,
		Description: description,
		CategoryID:  categoryID,
		ClientID:    user.ID,
	}
	if err := s.expenseRepo.Create(ctx, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *RecordService) RecentIncomes(ctx context.Context, user *model.User) ([]model.Income, error) {
	return s.incomeRepo.ListRecent(ctx, user.ID, 10)
}

func (s *RecordService) RecentExpenses(ctx context.Context, user *model.User) ([]repository.ExpenseRow, error) {
	return s.expenseRepo.ListRecent(ctx, user.ID, 10)
}

func (s *RecordService) FindIncome(ctx context.Context, user *model.User, incomeID uint) (*model.Income, error) {
	return s.incomeRepo.FindOwned(ctx, incomeID, user.ID)
}

func (s *RecordService) FindExpense(ctx context.Context, user *model.User, expenseID uint) (*model.Expense, error) {
	return s.expenseRepo.FindOwned(ctx, expenseID, user.ID)
}

// EditIncome fully replaces the mutable fields of an owned income record.
func (s *RecordService) EditIncome(ctx context.Context, user *model.User, incomeID uint, amount float64, description string) error {
	if _, err := s.incomeRepo.FindOwned(ctx, incomeID, user.ID); err != nil {
		return err
	}
	return s.incomeRepo.Update(ctx, incomeID, amount, description)
}

// EditExpense fully replaces the mutable fields of an owned expense record.
func (s *RecordService) EditExpense(ctx context.Context, user *model.User, expenseID uint, amount float64, description string, categoryID uint) error {
	if _, err := s.expenseRepo.FindOwned(ctx, expenseID, user.ID); err != nil {
		return err
	}
	return s.expenseRepo.Update(ctx, expenseID, amount, description, categoryID)
}

func (s *RecordService) DeleteIncome(ctx context.Context, user *model.User, incomeID uint) error {
	if _, err := s.incomeRepo.FindOwned(ctx, incomeID, user.ID); err != nil {
		return err
	}
	return s.incomeRepo.Delete(ctx, incomeID, user.ID)
}

func (s *RecordService) DeleteExpense(ctx context.Context, user *model.User, expenseID uint) error {
	if _, err := s.expenseRepo.FindOwned(ctx, expenseID, user.ID); err != nil {
		return err
	}
	return s.expenseRepo.Delete(ctx, expenseID, user.ID)
}

func (s *RecordService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	return s.categoryRepo.Create(ctx, name)
}

func (s *RecordService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *RecordService) CategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return s.categoryRepo.FindByName(ctx, name)
}
