package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"finance-bot/internal/model"
	"finance-bot/internal/report"
	"finance-bot/internal/repository"
	"finance-bot/internal/service"
)

type stubRenderer struct {
	lineCalls  int
	pieCalls   int
	sheetCalls int
}

func (s *stubRenderer) LineChart(title string, points []report.Point) ([]byte, error) {
	s.lineCalls++
	return []byte("png"), nil
}

func (s *stubRenderer) PieChart(title string, slices []report.Slice) ([]byte, error) {
	s.pieCalls++
	return []byte("png"), nil
}

func (s *stubRenderer) Spreadsheet(sheet string, headers []string, rows [][]interface{}) ([]byte, error) {
	s.sheetCalls++
	return []byte("xlsx"), nil
}

type stubImages struct {
	url string
	err error
}

func (s stubImages) RandomImage(ctx context.Context) (string, error) {
	return s.url, s.err
}

type dialogFixture struct {
	dialog   *Dialog
	records  *service.RecordService
	renderer *stubRenderer
	user     *model.User
	other    *model.User
}

func newDialogFixture(t *testing.T) *dialogFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	records := service.NewRecordService(
		repository.NewIncomeRepository(db),
		repository.NewExpenseRepository(db),
		repository.NewCategoryRepository(db),
	)
	stats := service.NewStatsService(repository.NewStatsRepository(db))
	renderer := &stubRenderer{}
	dialog := NewDialog(records, stats, renderer, stubImages{url: "https://example.com/cat.png"})

	users := repository.NewUserRepository(db)
	user, err := users.Ensure(context.Background(), 42)
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	other, err := users.Ensure(context.Background(), 43)
	if err != nil {
		t.Fatalf("ensure other: %v", err)
	}

	return &dialogFixture{dialog: dialog, records: records, renderer: renderer, user: user, other: other}
}

func (f *dialogFixture) say(t *testing.T, texts ...string) []Reply {
	t.Helper()
	var replies []Reply
	for _, text := range texts {
		replies = f.dialog.Handle(context.Background(), f.user, text)
	}
	return replies
}

func firstText(replies []Reply) string {
	for _, r := range replies {
		if r.Text != "" {
			return r.Text
		}
	}
	return ""
}

func TestAddIncomeFlow(t *testing.T) {
	f := newDialogFixture(t)

	replies := f.say(t, "Доход", "Добавить")
	if firstText(replies) != msgIncomeAmount {
		t.Fatalf("expected amount prompt, got %q", firstText(replies))
	}

	replies = f.say(t, "150.50")
	if firstText(replies) != msgIncomeDesc {
		t.Fatalf("expected description prompt, got %q", firstText(replies))
	}

	replies = f.say(t, "salary")
	if firstText(replies) != msgIncomeAdded {
		t.Fatalf("expected success, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("state must be cleared after the terminal action")
	}

	incomes, err := f.records.RecentIncomes(context.Background(), f.user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incomes) != 1 || incomes[0].Amount != 150.50 || incomes[0].Description != "salary" {
		t.Errorf("stored record mismatch: %+v", incomes)
	}
}

func TestAddAmountErrorResetsToMenu(t *testing.T) {
	f := newDialogFixture(t)

	replies := f.say(t, "Расход", "Добавить", "abc")
	if firstText(replies) != msgErrAmount {
		t.Fatalf("expected amount error, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("add-flow amount error must reset to idle")
	}

	expenses, err := f.records.RecentExpenses(context.Background(), f.user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("no record must be created, got %+v", expenses)
	}
}

func TestAddAmountRejectsNonFinite(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()

	// ParseFloat accepts these spellings, but none is a usable amount.
	for _, raw := range []string{"NaN", "nan", "+Inf", "-Inf", "Infinity"} {
		replies := f.say(t, "Доход", "Добавить", raw)
		if firstText(replies) != msgErrAmount {
			t.Errorf("%q: expected amount error, got %q", raw, firstText(replies))
		}
		if f.dialog.getState(f.user.TelegramID) != nil {
			t.Errorf("%q: state must be cleared", raw)
		}
	}

	incomes, err := f.records.RecentIncomes(ctx, f.user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incomes) != 0 {
		t.Errorf("no record must be created, got %+v", incomes)
	}
}

func TestAddExpenseFlowWithCategory(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	if _, err := f.records.CreateCategory(ctx, "Еда"); err != nil {
		t.Fatalf("create category: %v", err)
	}

	replies := f.say(t, "Расход", "Добавить", "99.90", "ужин")
	if firstText(replies) != msgChooseCat {
		t.Fatalf("expected category prompt, got %q", firstText(replies))
	}

	// An unmatched name re-prompts without discarding amount/description.
	replies = f.say(t, "Жильё")
	if firstText(replies) != msgCatNotFound {
		t.Fatalf("expected category-not-found, got %q", firstText(replies))
	}
	state := f.dialog.getState(f.user.TelegramID)
	if state == nil || state.amount != 99.90 || state.description != "ужин" {
		t.Fatalf("payload lost on re-prompt: %+v", state)
	}

	f.say(t, "Еда")
	expenses, err := f.records.RecentExpenses(ctx, f.user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Amount != 99.90 || expenses[0].CategoryName != "Еда" {
		t.Errorf("stored record mismatch: %+v", expenses)
	}
}

func TestCategoryChoiceIsClosedSnapshot(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	if _, err := f.records.CreateCategory(ctx, "Еда"); err != nil {
		t.Fatalf("create category: %v", err)
	}

	f.say(t, "Расход", "Добавить", "10", "кофе")

	// Created after the snapshot was taken: not a valid choice yet.
	if _, err := f.records.CreateCategory(ctx, "Новая"); err != nil {
		t.Fatalf("create category: %v", err)
	}
	replies := f.say(t, "Новая")
	if firstText(replies) != msgCatNotFound {
		t.Fatalf("snapshot must be closed, got %q", firstText(replies))
	}

	// The re-prompt refreshed the snapshot, so now it matches.
	replies = f.say(t, "Новая")
	if !strings.Contains(firstText(replies), "успешно добавлен") {
		t.Fatalf("expected success after refresh, got %q", firstText(replies))
	}
}

func TestMenuCancelsMidFlow(t *testing.T) {
	f := newDialogFixture(t)

	f.say(t, "Доход", "Добавить")
	replies := f.say(t, btnMenu)
	if firstText(replies) != msgMainMenu {
		t.Fatalf("expected menu, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("cancel must discard the conversation state")
	}

	incomes, err := f.records.RecentIncomes(context.Background(), f.user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incomes) != 0 {
		t.Error("cancel must not commit partial data")
	}
}

func TestEditIncomeFlow(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	income, err := f.records.AddIncome(ctx, f.user, 100, "старое")
	if err != nil {
		t.Fatalf("seed income: %v", err)
	}

	replies := f.say(t, "Доход", "Редактировать")
	if !strings.Contains(firstText(replies), "Последние 10 записей") {
		t.Fatalf("expected listing, got %q", firstText(replies))
	}

	replies = f.say(t, fmt.Sprintf("%d", income.ID))
	if firstText(replies) != msgNewAmount {
		t.Fatalf("expected amount prompt, got %q", firstText(replies))
	}

	// Edit-flow amount errors re-prompt instead of resetting.
	replies = f.say(t, "abc")
	if firstText(replies) != msgErrNumber {
		t.Fatalf("expected number error, got %q", firstText(replies))
	}
	if state := f.dialog.getState(f.user.TelegramID); state == nil || state.stage != stageEditAmount {
		t.Fatal("edit-amount error must stay in the same state")
	}

	f.say(t, "250", "новое")
	got, err := f.records.FindIncome(ctx, f.user, income.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Amount != 250 || got.Description != "новое" {
		t.Errorf("edit mismatch: %+v", got)
	}
}

func TestEditUnknownIDAborts(t *testing.T) {
	f := newDialogFixture(t)
	if _, err := f.records.AddIncome(context.Background(), f.user, 1, "x"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.say(t, "Доход", "Редактировать")

	replies := f.say(t, "нечисло")
	if firstText(replies) != msgErrNumberID {
		t.Fatalf("expected malformed-id error, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) == nil {
		t.Fatal("malformed id must re-prompt, not reset")
	}

	replies = f.say(t, "999")
	if firstText(replies) != msgErrRecordID {
		t.Fatalf("expected not-found, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("unknown id must abort to idle")
	}
}

func TestDeleteExpenseFlow(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	cat, err := f.records.CreateCategory(ctx, "Еда")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	expense, err := f.records.AddExpense(ctx, f.user, 5, "кофе", cat.ID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	replies := f.say(t, "Расход", "Удалить", fmt.Sprintf("%d", expense.ID))
	if firstText(replies) != msgExpenseDeleted {
		t.Fatalf("expected delete confirmation, got %q", firstText(replies))
	}
	if _, err := f.records.FindExpense(ctx, f.user, expense.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("record must be gone, got %v", err)
	}
}

func TestDeleteForeignRecordNotFound(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	foreign, err := f.records.AddIncome(ctx, f.other, 500, "чужое")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.records.AddIncome(ctx, f.user, 1, "своё"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	replies := f.say(t, "Доход", "Удалить", fmt.Sprintf("%d", foreign.ID))
	if firstText(replies) != msgErrRecordID {
		t.Fatalf("foreign record must look missing, got %q", firstText(replies))
	}
	if _, err := f.records.FindIncome(ctx, f.other, foreign.ID); err != nil {
		t.Errorf("foreign record must survive: %v", err)
	}
}

func TestNewCategoryDuplicateReprompts(t *testing.T) {
	f := newDialogFixture(t)
	if _, err := f.records.CreateCategory(context.Background(), "Еда"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	replies := f.say(t, "Расход", "Добавить категорию", "Еда")
	if !strings.Contains(firstText(replies), "уже существует") {
		t.Fatalf("expected duplicate warning, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) == nil {
		t.Fatal("duplicate must re-prompt, not reset")
	}

	replies = f.say(t, "Аптека")
	if !strings.Contains(firstText(replies), "успешно добавлена") {
		t.Fatalf("expected success, got %q", firstText(replies))
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("state must be cleared after category creation")
	}
}

func TestStatsEmptyPeriodSkipsRendering(t *testing.T) {
	f := newDialogFixture(t)

	replies := f.say(t, "Статистика расходов", "Неделя", "Диаграмма")
	if firstText(replies) != msgErrRecordEmpty {
		t.Fatalf("expected empty-period message, got %q", firstText(replies))
	}
	if f.renderer.pieCalls != 0 {
		t.Errorf("no chart must be rendered for an empty period, got %d calls", f.renderer.pieCalls)
	}
}

func TestStatsPieAndTableFlows(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	cat, err := f.records.CreateCategory(ctx, "Еда")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := f.records.AddExpense(ctx, f.user, 30, "обед", cat.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	replies := f.say(t, "Статистика расходов", "День", "Диаграмма")
	if f.renderer.pieCalls != 1 {
		t.Fatalf("expected one pie render, got %d", f.renderer.pieCalls)
	}
	if len(replies) == 0 || len(replies[0].Photo) == 0 {
		t.Error("expected a photo reply")
	}

	replies = f.say(t, "Статистика расходов", "День", "Таблица")
	if f.renderer.sheetCalls != 1 {
		t.Fatalf("expected one spreadsheet render, got %d", f.renderer.sheetCalls)
	}
	if len(replies) == 0 || replies[0].DocumentName != "top_expenses.xlsx" {
		t.Errorf("expected a document reply, got %+v", replies)
	}
}

func TestMonthlyIncomeReport(t *testing.T) {
	f := newDialogFixture(t)
	if _, err := f.records.AddIncome(context.Background(), f.user, 700, "зарплата"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	replies := f.say(t, "Статистика доходов")
	if f.renderer.sheetCalls != 1 || f.renderer.lineCalls != 1 {
		t.Fatalf("expected table and chart renders, got %d/%d", f.renderer.sheetCalls, f.renderer.lineCalls)
	}
	if len(replies) == 0 || replies[0].DocumentName != "incomes.xlsx" {
		t.Errorf("expected income document first, got %+v", replies)
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("income statistics must not leave a pending state")
	}
}

func TestUnrecognizedInputSendsPlaceholder(t *testing.T) {
	f := newDialogFixture(t)

	replies := f.say(t, "лалала")
	if len(replies) != 2 || replies[0].PhotoURL == "" {
		t.Fatalf("expected placeholder photo then text, got %+v", replies)
	}
	if replies[1].Text != msgNotUnderstood {
		t.Errorf("expected not-understood text, got %q", replies[1].Text)
	}
}

func TestUnrecognizedInputSurvivesFetchFailure(t *testing.T) {
	f := newDialogFixture(t)
	f.dialog.images = stubImages{err: errors.New("both sources down")}

	replies := f.say(t, "лалала")
	if len(replies) != 1 || replies[0].Text != msgNotUnderstood {
		t.Fatalf("text must still be sent when the fetch fails, got %+v", replies)
	}
}

// Exercises Handle against the expiry sweep the way the cron goroutine
// does in production; the race detector flags any unguarded touchedAt
// access here.
func TestExpireStaleConcurrentWithHandle(t *testing.T) {
	f := newDialogFixture(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			f.dialog.ExpireStale(time.Hour)
		}
	}()
	for i := 0; i < 100; i++ {
		f.say(t, "Доход", "Добавить", "не число")
	}
	<-done
}

func TestExpireStale(t *testing.T) {
	f := newDialogFixture(t)
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	f.dialog.now = func() time.Time { return now }

	f.say(t, "Доход", "Добавить")
	if f.dialog.getState(f.user.TelegramID) == nil {
		t.Fatal("expected an active state")
	}

	now = now.Add(31 * time.Minute)
	if n := f.dialog.ExpireStale(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 expired state, got %d", n)
	}
	if f.dialog.getState(f.user.TelegramID) != nil {
		t.Error("stale state must be dropped")
	}
}
