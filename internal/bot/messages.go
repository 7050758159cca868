package bot

// Menu and flow button labels.
const (
	btnIncome       = "Доход"
	btnExpense      = "Расход"
	btnIncomeStats  = "Статистика доходов"
	btnExpenseStats = "Статистика расходов"

	btnAdd         = "Добавить"
	btnEdit        = "Редактировать"
	btnDelete      = "Удалить"
	btnAddCategory = "Добавить категорию"
	btnBack        = "Назад"
	btnMenu        = "Меню"

	btnPeriodDay     = "День"
	btnPeriodWeek    = "Неделя"
	btnPeriodMonth   = "Месяц"
	btnPeriodQuarter = "Квартал"
	btnPeriodYear    = "Год"

	btnFormatTable = "Таблица"
	btnFormatPie   = "Диаграмма"
	btnFormatGraph = "График"
)

// User-facing messages.
const (
	msgEditRecordID   = "Введите ID записи, которую хотите редактировать:"
	msgDeleteRecordID = "Введите ID записи, которую хотите удалить:"

	msgErrNumber      = "Необходимо вести положительное число"
	msgErrNumberID    = "Пожалуйста, введите действительный ID (целое число)"
	msgErrRecordID    = "Запись с таким ID не найдена"
	msgErrRecordEmpty = "Записей доходов/расходов нет"
	msgErrAmount      = "Ошибка, вы отправили некорректную сумму."

	msgIncomeAmount  = "Введите сумму дохода, указав число в рублях:"
	msgExpenseAmount = "Введите сумму расходов, указав число в рублях:"
	msgIncomeDesc    = "Введите описание дохода:"
	msgExpenseDesc   = "Введите описание расхода:"
	msgNewAmount     = "Введите новую сумму:"
	msgNewDesc       = "Введите новое описание:"
	msgChooseCat     = "Выберите категорию:"
	msgNewCategory   = "Введите новую категорию:"
	msgChoosePeriod  = "Выберите период:"
	msgChooseFormat  = "Выберите формат отображения:"

	msgIncomeAdded     = "Доход успешно добавлен!"
	msgIncomeUpdated   = "Доход успешно обновлен!"
	msgIncomeDeleted   = "Доход успешно удален!"
	msgExpenseUpdated  = "Расход успешно обновлен!"
	msgExpenseDeleted  = "Расход успешно удален!"
	msgNoEditRecords   = "Нет записей для редактирования."
	msgNoDeleteRecords = "Нет записей для удаления."
	msgUnknownAction   = "Таких функций нет"
	msgBadFormat       = "Неверный выбор формата"
	msgCatNotFound     = "Категория не найдена. Пожалуйста, выберите снова."
	msgEditCatNotFound = "Категория не найдена! Пожалуйста, введите корректную категорию."
	msgNoCategories    = "Нет категорий. Укажи новую категорию и попробуй заново создать запись о расходе"
	msgMainMenu        = "Выберите опцию:"
	msgNotUnderstood   = "Я вас не понял, используйте /start"

	msgTopExpensesSent = "Таблица - Топ 5 крупных затрат за указанный период отправлен"
	msgIncomeTableSent = "Таблица доходов за месяц"
)

const helpMsg = `👋 Привет! Это Финансовый менеджер - ваш личный помощник для учета расходов.

📊 С помощью этого бота вы можете:
1. Вводить свои доходы, и расходы по категориям.
2. Получать графики ваших затрат, чтобы лучше контролировать свои финансы.

📝 Команды:
- /start - начать диалог с ботом.
- /help - получить помощь по использованию бота.
- /cancel - отменить текущий ввод.`
