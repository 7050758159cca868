package service

import (
	"context"
	"errors"
	"testing"

	"finance-bot/internal/model"
	"finance-bot/internal/repository"
)

func newRecordFixture(t *testing.T) (*RecordService, *model.User, *model.User) {
	t.Helper()
	db := newTestDB(t)
	svc := NewRecordService(
		repository.NewIncomeRepository(db),
		repository.NewExpenseRepository(db),
		repository.NewCategoryRepository(db),
	)
	users := repository.NewUserRepository(db)
	owner, err := users.Ensure(context.Background(), 1)
	if err != nil {
		t.Fatalf("ensure owner: %v", err)
	}
	other, err := users.Ensure(context.Background(), 2)
	if err != nil {
		t.Fatalf("ensure other: %v", err)
	}
	return svc, owner, other
}

func TestAddIncomeRejectsNonPositive(t *testing.T) {
	svc, owner, _ := newRecordFixture(t)

	if _, err := svc.AddIncome(context.Background(), owner, 0, "x"); !errors.Is(err, repository.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestEditIncomeGatesOwnership(t *testing.T) {
	svc, owner, other := newRecordFixture(t)
	ctx := context.Background()

	income, err := svc.AddIncome(ctx, owner, 100, "зарплата")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.EditIncome(ctx, other, income.ID, 1, "чужое"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("edit of a foreign record must report not found, got %v", err)
	}

	if err := svc.EditIncome(ctx, owner, income.ID, 200, "премия"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got, err := svc.FindIncome(ctx, owner, income.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Amount != 200 || got.Description != "премия" {
		t.Errorf("full replace mismatch: %+v", got)
	}
}

func TestDeleteIncomeNotFound(t *testing.T) {
	svc, owner, _ := newRecordFixture(t)

	if err := svc.DeleteIncome(context.Background(), owner, 12345); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEditExpenseReassignsCategory(t *testing.T) {
	svc, owner, _ := newRecordFixture(t)
	ctx := context.Background()

	food, err := svc.CreateCategory(ctx, "Еда")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	transport, err := svc.CreateCategory(ctx, "Транспорт")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	expense, err := svc.AddExpense(ctx, owner, 50, "обед", food.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.EditExpense(ctx, owner, expense.ID, 80, "такси", transport.ID); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got, err := svc.FindExpense(ctx, owner, expense.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Amount != 80 || got.Description != "такси" || got.CategoryID != transport.ID {
		t.Errorf("full replace mismatch: %+v", got)
	}
}
