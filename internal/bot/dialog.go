package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"finance-bot/internal/model"
	"finance-bot/internal/report"
	"finance-bot/internal/repository"
	"finance-bot/internal/service"
)

type recordKind int

const (
	kindIncome recordKind = iota
	kindExpense
)

type stage int

const (
	stageActionChoice stage = iota
	stageAmount
	stageDescription
	stageCategoryChoice
	stageEditID
	stageEditAmount
	stageEditDescription
	stageEditCategoryChoice
	stageDeleteID
	stageNewCategoryName
	stagePeriodChoice
	stageFormatChoice
)

// conversationState is the tagged per-user dialog state. Each stage uses
// only the payload fields accumulated by the steps leading to it.
type conversationState struct {
	stage       stage
	kind        recordKind
	amount      float64
	description string
	recordID    uint
	categories  []model.Category
	period      service.Period
	touchedAt   time.Time
}

// Reply is one outbound action for the transport layer.
type Reply struct {
	Text         string
	Keyboard     interface{}
	PhotoURL     string
	Photo        []byte
	PhotoCaption string
	Document     []byte
	DocumentName string
}

// Renderer produces report artifacts from query results.
type Renderer interface {
	LineChart(title string, points []report.Point) ([]byte, error)
	PieChart(title string, slices []report.Slice) ([]byte, error)
	Spreadsheet(sheet string, headers []string, rows [][]interface{}) ([]byte, error)
}

// ImageSource supplies a placeholder image URL for unrecognized input.
type ImageSource interface {
	RandomImage(ctx context.Context) (string, error)
}

// Dialog is the per-user conversation state machine. Each transition is a
// function of (current state, input) producing a new state and replies;
// transport and rendering stay behind interfaces.
type Dialog struct {
	records  *service.RecordService
	stats    *service.StatsService
	renderer Renderer
	images   ImageSource

	mu     sync.Mutex
	states map[int64]*conversationState
	now    func() time.Time
}

func NewDialog(records *service.RecordService, stats *service.StatsService, renderer Renderer, images ImageSource) *Dialog {
	return &Dialog{
		records:  records,
		stats:    stats,
		renderer: renderer,
		images:   images,
		states:   make(map[int64]*conversationState),
		now:      time.Now,
	}
}

// Handle advances the user's conversation with one message and returns the
// replies to send. Messages from the same user must not be handled
// concurrently; the transport layer serializes them.
func (d *Dialog) Handle(ctx context.Context, user *model.User, text string) []Reply {
	text = strings.TrimSpace(text)

	if text == btnMenu {
		d.clearState(user.TelegramID)
		return []Reply{{Text: msgMainMenu, Keyboard: mainMenuKeyboard()}}
	}

	state := d.touchState(user.TelegramID)
	if state == nil {
		return d.handleIdle(ctx, user, text)
	}

	switch state.stage {
	case stageActionChoice:
		return d.handleActionChoice(ctx, user, state, text)
	case stageAmount:
		return d.handleAmount(user, state, text)
	case stageDescription:
		return d.handleDescription(ctx, user, state, text)
	case stageCategoryChoice:
		return d.handleCategoryChoice(ctx, user, state, text)
	case stageEditID:
		return d.handleEditID(ctx, user, state, text)
	case stageEditAmount:
		return d.handleEditAmount(user, state, text)
	case stageEditDescription:
		return d.handleEditDescription(ctx, user, state, text)
	case stageEditCategoryChoice:
		return d.handleEditCategoryChoice(ctx, user, state, text)
	case stageDeleteID:
		return d.handleDeleteID(ctx, user, state, text)
	case stageNewCategoryName:
		return d.handleNewCategoryName(ctx, user, state, text)
	case stagePeriodChoice:
		return d.handlePeriodChoice(user, state, text)
	case stageFormatChoice:
		return d.handleFormatChoice(ctx, user, state, text)
	default:
		d.clearState(user.TelegramID)
		return []Reply{{Text: msgMainMenu, Keyboard: mainMenuKeyboard()}}
	}
}

// ExpireStale drops conversation states idle longer than maxIdle. Expired
// users simply start over from the menu.
func (d *Dialog) ExpireStale(maxIdle time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-maxIdle)
	expired := 0
	for id, state := range d.states {
		if state.touchedAt.Before(cutoff) {
			delete(d.states, id)
			expired++
		}
	}
	return expired
}

func (d *Dialog) handleIdle(ctx context.Context, user *model.User, text string) []Reply {
	switch text {
	case btnIncome:
		return d.startActionChoice(user, kindIncome)
	case btnExpense:
		return d.startActionChoice(user, kindExpense)
	case btnExpenseStats:
		d.setState(user.TelegramID, &conversationState{stage: stagePeriodChoice})
		return []Reply{{Text: msgChoosePeriod, Keyboard: periodKeyboard()}}
	case btnIncomeStats:
		return d.monthlyIncomeReport(ctx, user)
	default:
		return d.notUnderstood(ctx)
	}
}

func (d *Dialog) startActionChoice(user *model.User, kind recordKind) []Reply {
	d.setState(user.TelegramID, &conversationState{stage: stageActionChoice, kind: kind})
	return []Reply{{Text: instructionText(kind), Keyboard: actionKeyboard(kind)}}
}

func (d *Dialog) handleActionChoice(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	switch text {
	case btnAdd:
		state.stage = stageAmount
		prompt := msgIncomeAmount
		if state.kind == kindExpense {
			prompt = msgExpenseAmount
		}
		return []Reply{{Text: prompt, Keyboard: removeKeyboard()}}
	case btnEdit:
		return d.listRecordsAndAsk(ctx, user, state, stageEditID, msgEditRecordID, msgNoEditRecords)
	case btnDelete:
		return d.listRecordsAndAsk(ctx, user, state, stageDeleteID, msgDeleteRecordID, msgNoDeleteRecords)
	case btnAddCategory:
		if state.kind == kindExpense {
			state.stage = stageNewCategoryName
			return []Reply{{Text: msgNewCategory, Keyboard: removeKeyboard()}}
		}
	case btnBack:
		d.clearState(user.TelegramID)
		return []Reply{{Text: msgMainMenu, Keyboard: mainMenuKeyboard()}}
	}
	d.clearState(user.TelegramID)
	return []Reply{
		{Text: msgUnknownAction},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

// listRecordsAndAsk shows the last 10 records and prompts for an id, or
// aborts to the menu when the user has nothing to pick from.
func (d *Dialog) listRecordsAndAsk(ctx context.Context, user *model.User, state *conversationState, next stage, prompt, emptyMsg string) []Reply {
	listing, err := d.recentListing(ctx, user, state.kind)
	if err != nil {
		d.clearState(user.TelegramID)
		return d.internalError(err)
	}
	if listing == "" {
		d.clearState(user.TelegramID)
		return []Reply{
			{Text: emptyMsg},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}
	state.stage = next
	return []Reply{
		{Text: listing},
		{Text: prompt, Keyboard: menuKeyboard()},
	}
}

func (d *Dialog) recentListing(ctx context.Context, user *model.User, kind recordKind) (string, error) {
	var b strings.Builder
	if kind == kindIncome {
		incomes, err := d.records.RecentIncomes(ctx, user)
		if err != nil {
			return "", err
		}
		if len(incomes) == 0 {
			return "", nil
		}
		b.WriteString("Последние 10 записей:\n")
		for _, rec := range incomes {
			b.WriteString(fmt.Sprintf("ID: %d, Сумма: %s, Описание: %s, Дата: %s\n",
				rec.ID, formatAmount(rec.Amount), rec.Description, rec.DateAdded.Format("02.01.2006 15:04")))
		}
		return b.String(), nil
	}

	expenses, err := d.records.RecentExpenses(ctx, user)
	if err != nil {
		return "", err
	}
	if len(expenses) == 0 {
		return "", nil
	}
	b.WriteString("Последние 10 записей:\n")
	for _, rec := range expenses {
		b.WriteString(fmt.Sprintf("ID: %d, Сумма: %s, Категория: %s, Описание: %s, Дата: %s\n",
			rec.ID, formatAmount(rec.Amount), rec.CategoryName, rec.Description, rec.DateAdded.Format("02.01.2006 15:04")))
	}
	return b.String(), nil
}

func (d *Dialog) handleAmount(user *model.User, state *conversationState, text string) []Reply {
	amount, err := parseAmount(text)
	if err != nil {
		// New-record amount errors reset to the menu; edit-amount errors
		// re-prompt instead.
		d.clearState(user.TelegramID)
		return []Reply{
			{Text: msgErrAmount},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}
	state.amount = amount
	state.stage = stageDescription
	prompt := msgIncomeDesc
	if state.kind == kindExpense {
		prompt = msgExpenseDesc
	}
	return []Reply{{Text: prompt}}
}

func (d *Dialog) handleDescription(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	if state.kind == kindIncome {
		if _, err := d.records.AddIncome(ctx, user, state.amount, text); err != nil {
			d.clearState(user.TelegramID)
			return d.internalError(err)
		}
		d.clearState(user.TelegramID)
		return []Reply{
			{Text: msgIncomeAdded},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}

	state.description = text
	categories, err := d.records.Categories(ctx)
	if err != nil {
		d.clearState(user.TelegramID)
		return d.internalError(err)
	}
	if len(categories) == 0 {
		state.stage = stageNewCategoryName
		return []Reply{
			{Text: msgNoCategories},
			{Text: msgNewCategory, Keyboard: removeKeyboard()},
		}
	}
	// The candidate set is snapshotted here; a choice is validated against
	// this snapshot, not a fresh query.
	state.categories = categories
	state.stage = stageCategoryChoice
	return []Reply{{Text: msgChooseCat, Keyboard: categoryKeyboard(categories, true)}}
}

func (d *Dialog) handleCategoryChoice(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	if text == btnBack {
		return d.startActionChoice(user, kindExpense)
	}

	for _, cat := range state.categories {
		if cat.Name == text {
			if _, err := d.records.AddExpense(ctx, user, state.amount, state.description, cat.ID); err != nil {
				d.clearState(user.TelegramID)
				return d.internalError(err)
			}
			added := fmt.Sprintf("Расход в размере %s с описанием \"%s\" успешно добавлен в категорию \"%s\".",
				formatAmount(state.amount), state.description, cat.Name)
			d.clearState(user.TelegramID)
			return []Reply{
				{Text: added},
				{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
			}
		}
	}

	// Re-prompt with a fresh snapshot: a matching category may have been
	// created since the state was entered. Amount and description stay.
	categories, err := d.records.Categories(ctx)
	if err != nil {
		d.clearState(user.TelegramID)
		return d.internalError(err)
	}
	state.categories = categories
	return []Reply{{Text: msgCatNotFound, Keyboard: categoryKeyboard(categories, true)}}
}

func (d *Dialog) handleEditID(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	id, err := parseID(text)
	if err != nil {
		return []Reply{{Text: msgErrNumberID, Keyboard: menuKeyboard()}}
	}

	if state.kind == kindIncome {
		_, err = d.records.FindIncome(ctx, user, id)
	} else {
		_, err = d.records.FindExpense(ctx, user, id)
	}
	if err != nil {
		d.clearState(user.TelegramID)
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{
				{Text: msgErrRecordID},
				{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
			}
		}
		return d.internalError(err)
	}

	state.recordID = id
	state.stage = stageEditAmount
	return []Reply{{Text: msgNewAmount, Keyboard: removeKeyboard()}}
}

func (d *Dialog) handleEditAmount(user *model.User, state *conversationState, text string) []Reply {
	amount, err := parseAmount(text)
	if err != nil {
		return []Reply{{Text: msgErrNumber}}
	}
	state.amount = amount
	state.stage = stageEditDescription
	return []Reply{{Text: msgNewDesc}}
}

func (d *Dialog) handleEditDescription(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	if state.kind == kindIncome {
		err := d.records.EditIncome(ctx, user, state.recordID, state.amount, text)
		d.clearState(user.TelegramID)
		if err != nil {
			return d.internalError(err)
		}
		return []Reply{
			{Text: msgIncomeUpdated},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}

	state.description = text
	categories, err := d.records.Categories(ctx)
	if err != nil {
		d.clearState(user.TelegramID)
		return d.internalError(err)
	}
	if len(categories) == 0 {
		d.clearState(user.TelegramID)
		return []Reply{
			{Text: msgNoCategories},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}
	state.categories = categories
	state.stage = stageEditCategoryChoice
	return []Reply{{Text: msgChooseCat, Keyboard: categoryKeyboard(categories, true)}}
}

func (d *Dialog) handleEditCategoryChoice(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	if text == btnBack {
		return d.startActionChoice(user, kindExpense)
	}

	// Name lookup goes to the store, not the snapshot: a category created
	// mid-dialog is a valid choice here.
	category, err := d.records.CategoryByName(ctx, text)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{{Text: msgEditCatNotFound, Keyboard: categoryKeyboard(state.categories, true)}}
		}
		d.clearState(user.TelegramID)
		return d.internalError(err)
	}

	err = d.records.EditExpense(ctx, user, state.recordID, state.amount, state.description, category.ID)
	d.clearState(user.TelegramID)
	if err != nil {
		return d.internalError(err)
	}
	return []Reply{
		{Text: msgExpenseUpdated},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

func (d *Dialog) handleDeleteID(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	id, err := parseID(text)
	if err != nil {
		return []Reply{{Text: msgErrNumberID, Keyboard: menuKeyboard()}}
	}

	var done string
	if state.kind == kindIncome {
		err = d.records.DeleteIncome(ctx, user, id)
		done = msgIncomeDeleted
	} else {
		err = d.records.DeleteExpense(ctx, user, id)
		done = msgExpenseDeleted
	}
	d.clearState(user.TelegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{
				{Text: msgErrRecordID},
				{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
			}
		}
		return d.internalError(err)
	}
	return []Reply{
		{Text: done},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

func (d *Dialog) handleNewCategoryName(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	if text == "" {
		return []Reply{{Text: msgNewCategory}}
	}
	if _, err := d.records.CreateCategory(ctx, text); err != nil {
		if errors.Is(err, repository.ErrDuplicateCategory) {
			return []Reply{{Text: fmt.Sprintf("Категория \"%s\" уже существует. Пожалуйста, введите другое название.", text)}}
		}
		d.clearState(user.TelegramID)
		return d.internalError(err)
	}
	d.clearState(user.TelegramID)
	return []Reply{
		{Text: fmt.Sprintf("Категория \"%s\" успешно добавлена!", text)},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

func (d *Dialog) handlePeriodChoice(user *model.User, state *conversationState, text string) []Reply {
	period, ok := parsePeriod(text)
	if !ok {
		return []Reply{{Text: msgChoosePeriod, Keyboard: periodKeyboard()}}
	}
	state.period = period
	state.stage = stageFormatChoice
	return []Reply{{Text: msgChooseFormat, Keyboard: formatKeyboard()}}
}

func (d *Dialog) handleFormatChoice(ctx context.Context, user *model.User, state *conversationState, text string) []Reply {
	period := state.period
	d.clearState(user.TelegramID)

	switch text {
	case btnFormatTable:
		return d.topExpensesReport(ctx, user, period)
	case btnFormatPie:
		return d.categoryPieReport(ctx, user, period)
	case btnFormatGraph:
		return d.expenseGraphReport(ctx, user, period)
	default:
		return []Reply{
			{Text: msgBadFormat},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}
}

func (d *Dialog) topExpensesReport(ctx context.Context, user *model.User, period service.Period) []Reply {
	rows, err := d.stats.TopExpenses(ctx, user, period)
	if err != nil {
		return d.statsError(err)
	}

	data := make([][]interface{}, len(rows))
	for i, row := range rows {
		data[i] = []interface{}{row.Amount, row.Description, row.CategoryName, row.DateAdded.Format("02.01.2006 15:04")}
	}
	doc, err := d.renderer.Spreadsheet("Топ расходов",
		[]string{"Сумма", "Описание", "Категория", "Дата"}, data)
	if err != nil {
		return d.internalError(err)
	}

	return []Reply{
		{Document: doc, DocumentName: "top_expenses.xlsx"},
		{Text: msgTopExpensesSent},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

func (d *Dialog) categoryPieReport(ctx context.Context, user *model.User, period service.Period) []Reply {
	totals, err := d.stats.CategoryBreakdown(ctx, user, period)
	if err != nil {
		return d.statsError(err)
	}

	slices := make([]report.Slice, len(totals))
	var total float64
	for i, t := range totals {
		slices[i] = report.Slice{Label: t.CategoryName, Value: t.TotalAmount}
		total += t.TotalAmount
	}
	img, err := d.renderer.PieChart("Распределение расходов по категориям", slices)
	if err != nil {
		return d.internalError(err)
	}

	return []Reply{
		{Photo: img, PhotoCaption: fmt.Sprintf("Всего расходов за выбранный период: %s", formatAmount(total))},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

func (d *Dialog) expenseGraphReport(ctx context.Context, user *model.User, period service.Period) []Reply {
	points, err := d.stats.ExpenseSeries(ctx, user, period)
	if err != nil {
		return d.statsError(err)
	}

	series := make([]report.Point, len(points))
	var total float64
	for i, p := range points {
		series[i] = report.Point{Time: p.DateAdded, Value: p.Amount}
		total += p.Amount
	}
	img, err := d.renderer.LineChart("Расход за выбранный период", series)
	if err != nil {
		return d.internalError(err)
	}

	return []Reply{
		{Photo: img, PhotoCaption: fmt.Sprintf("Всего расходов за выбранный период: %s", formatAmount(total))},
		{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
	}
}

// monthlyIncomeReport sends the month's incomes as an xlsx table plus a
// line chart, without leaving the idle state.
func (d *Dialog) monthlyIncomeReport(ctx context.Context, user *model.User) []Reply {
	points, err := d.stats.IncomeSeries(ctx, user, service.PeriodMonth)
	if err != nil {
		return d.statsError(err)
	}

	data := make([][]interface{}, len(points))
	series := make([]report.Point, len(points))
	var total float64
	for i, p := range points {
		data[i] = []interface{}{p.Amount, p.DateAdded.Format("02.01.2006 15:04")}
		series[i] = report.Point{Time: p.DateAdded, Value: p.Amount}
		total += p.Amount
	}

	doc, err := d.renderer.Spreadsheet("Доходы", []string{"Сумма", "Дата"}, data)
	if err != nil {
		return d.internalError(err)
	}
	img, err := d.renderer.LineChart("Доходы за месяц", series)
	if err != nil {
		return d.internalError(err)
	}

	return []Reply{
		{Document: doc, DocumentName: "incomes.xlsx"},
		{Text: msgIncomeTableSent},
		{Photo: img, PhotoCaption: fmt.Sprintf("Всего доходов за месяц: %s", formatAmount(total))},
	}
}

// notUnderstood answers unrecognized input with a placeholder image when
// one can be fetched; the text is sent regardless.
func (d *Dialog) notUnderstood(ctx context.Context) []Reply {
	replies := make([]Reply, 0, 2)
	if url, err := d.images.RandomImage(ctx); err == nil {
		replies = append(replies, Reply{PhotoURL: url})
	} else {
		log.Printf("[warn] placeholder image: %v", err)
	}
	return append(replies, Reply{Text: msgNotUnderstood, Keyboard: mainMenuKeyboard()})
}

func (d *Dialog) statsError(err error) []Reply {
	if errors.Is(err, service.ErrEmptyPeriod) {
		return []Reply{
			{Text: msgErrRecordEmpty},
			{Text: msgMainMenu, Keyboard: mainMenuKeyboard()},
		}
	}
	return d.internalError(err)
}

func (d *Dialog) internalError(err error) []Reply {
	log.Printf("[error] dialog: %v", err)
	return []Reply{
		{Text: "Произошла ошибка. Попробуйте ещё раз.", Keyboard: mainMenuKeyboard()},
	}
}

func (d *Dialog) getState(userID int64) *conversationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[userID]
}

// touchState refreshes touchedAt under the lock. The expiry sweep runs on
// its own goroutine, so touchedAt must only be accessed while holding d.mu.
func (d *Dialog) touchState(userID int64) *conversationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.states[userID]
	if state != nil {
		state.touchedAt = d.now()
	}
	return state
}

func (d *Dialog) setState(userID int64, state *conversationState) {
	state.touchedAt = d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[userID] = state
}

func (d *Dialog) clearState(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, userID)
}

func parseAmount(text string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, repository.ErrInvalidAmount
	}
	// ParseFloat accepts "NaN" and "Inf"; neither is a valid amount.
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, repository.ErrInvalidAmount
	}
	return amount, nil
}

func parseID(text string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func parsePeriod(text string) (service.Period, bool) {
	switch text {
	case btnPeriodDay:
		return service.PeriodDay, true
	case btnPeriodWeek:
		return service.PeriodWeek, true
	case btnPeriodMonth:
		return service.PeriodMonth, true
	case btnPeriodQuarter:
		return service.PeriodQuarter, true
	case btnPeriodYear:
		return service.PeriodYear, true
	default:
		return 0, false
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func instructionText(kind recordKind) string {
	label := btnIncome
	if kind == kindExpense {
		label = btnExpense
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Вы нажали на кнопку \"%s\", доступные опции:\n", label))
	b.WriteString("1. Добавить - внести новую запись.\n")
	b.WriteString("2. Редактировать - изменить существующую запись.\n")
	b.WriteString("3. Удалить - удалить запись.\n")
	if kind == kindExpense {
		b.WriteString("4. Добавить категорию - создать новую категорию расходов.\n")
	}
	b.WriteString("Просто выберите нужную опцию!")
	return b.String()
}
