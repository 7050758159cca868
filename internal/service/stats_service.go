package service

import (
	"context"
	"errors"
	"time"

	"finance-bot/internal/model"
	"finance-bot/internal/repository"
)

// ErrEmptyPeriod is returned when a statistics window contains no records;
// callers answer with a plain message instead of rendering a degenerate
// chart.
var ErrEmptyPeriod = errors.New("no records in period")

// Period is an enumerated lookback window for statistics queries.
type Period int

const (
	PeriodDay Period = iota
	PeriodWeek
	PeriodMonth
	PeriodQuarter
	PeriodYear
)

// WindowStart computes the inclusive lower bound of the period relative to
// now. The mapping mirrors the sqlite datetime modifiers of the first
// schema revision: start of day, -7 day, start of month, -3 month, start
// of year.
func (p Period) WindowStart(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodQuarter:
		return now.AddDate(0, -3, 0)
	case PeriodYear:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		return now
	}
}

// StatsService translates (period, user) pairs into the three report
// queries: top-5 table, time series and category breakdown.
type StatsService struct {
	statsRepo *repository.StatsRepository
	now       func() time.Time
}

func NewStatsService(statsRepo *repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo, now: time.Now}
}

// TopExpenses returns the 5 largest expenses in the window.
func (s *StatsService) TopExpenses(ctx context.Context, user *model.User, period Period) ([]repository.TopExpenseRow, error) {
	rows, err := s.statsRepo.TopExpenses(ctx, user.ID, period.WindowStart(s.now()), 5)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyPeriod
	}
	return rows, nil
}

// ExpenseSeries returns the expense time series for a line chart.
func (s *StatsService) ExpenseSeries(ctx context.Context, user *model.User, period Period) ([]repository.SeriesPoint, error) {
	points, err := s.statsRepo.ExpenseSeries(ctx, user.ID, period.WindowStart(s.now()))
	if err != nil {
		return nil, err
	}
	if totalOf(points) == 0 {
		return nil, ErrEmptyPeriod
	}
	return points, nil
}

// IncomeSeries returns the income time series for a line chart.
func (s *StatsService) IncomeSeries(ctx context.Context, user *model.User, period Period) ([]repository.SeriesPoint, error) {
	points, err := s.statsRepo.IncomeSeries(ctx, user.ID, period.WindowStart(s.now()))
	if err != nil {
		return nil, err
	}
	if totalOf(points) == 0 {
		return nil, ErrEmptyPeriod
	}
	return points, nil
}

// CategoryBreakdown returns spend per category for a pie chart.
func (s *StatsService) CategoryBreakdown(ctx context.Context, user *model.User, period Period) ([]repository.CategoryTotal, error) {
	totals, err := s.statsRepo.CategoryTotals(ctx, user.ID, period.WindowStart(s.now()))
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, t := range totals {
		sum += t.TotalAmount
	}
	if sum == 0 {
		return nil, ErrEmptyPeriod
	}
	return totals, nil
}

func totalOf(points []repository.SeriesPoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Amount
	}
	return sum
}
