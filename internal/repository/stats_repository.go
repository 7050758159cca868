package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"finance-bot/internal/model"
)

// TopExpenseRow is one line of the "largest expenses" report.
type TopExpenseRow struct {
	Amount       float64
	Description  string
	CategoryName string
	DateAdded    time.Time
}

// SeriesPoint is one point of an income or expense time series.
type SeriesPoint struct {
	Amount    float64
	DateAdded time.Time
}

// CategoryTotal is the aggregated spend for one category.
type CategoryTotal struct {
	CategoryName string
	TotalAmount  float64
}

// StatsRepository runs the read-only report queries. Every query is
// parameterized by owner and window start; nothing user-controlled ever
// reaches query text.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// TopExpenses returns the largest expenses in the window, amount descending.
func (r *StatsRepository) TopExpenses(ctx context.Context, clientID uint, since time.Time, limit int) ([]TopExpenseRow, error) {
	var rows []TopExpenseRow
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("expenses.amount, expenses.description, categories.name AS category_name, expenses.date_added").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.client_id = ? AND expenses.date_added >= ?", clientID, since).
		Order("expenses.amount DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpenseSeries returns all expenses in the window ordered by date.
func (r *StatsRepository) ExpenseSeries(ctx context.Context, clientID uint, since time.Time) ([]SeriesPoint, error) {
	var points []SeriesPoint
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("amount, date_added").
		Where("client_id = ? AND date_added >= ?", clientID, since).
		Order("date_added ASC").
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// IncomeSeries returns all incomes in the window ordered by date.
func (r *StatsRepository) IncomeSeries(ctx context.Context, clientID uint, since time.Time) ([]SeriesPoint, error) {
	var points []SeriesPoint
	err := r.db.WithContext(ctx).Model(&model.Income{}).
		Select("amount, date_added").
		Where("client_id = ? AND date_added >= ?", clientID, since).
		Order("date_added ASC").
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// CategoryTotals returns spend per category in the window.
func (r *StatsRepository) CategoryTotals(ctx context.Context, clientID uint, since time.Time) ([]CategoryTotal, error) {
	var totals []CategoryTotal
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("categories.name AS category_name, SUM(expenses.amount) AS total_amount").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.client_id = ? AND expenses.date_added >= ?", clientID, since).
		Group("expenses.category_id").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
