package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"finance-bot/internal/model"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnIncome),
			tgbotapi.NewKeyboardButton(btnExpense),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnIncomeStats),
			tgbotapi.NewKeyboardButton(btnExpenseStats),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func actionKeyboard(kind recordKind) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdd),
			tgbotapi.NewKeyboardButton(btnEdit),
			tgbotapi.NewKeyboardButton(btnDelete),
		),
	}
	if kind == kindExpense {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddCategory),
			tgbotapi.NewKeyboardButton(btnBack),
		))
	} else {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBack),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMenu),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func periodKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPeriodDay),
			tgbotapi.NewKeyboardButton(btnPeriodWeek),
			tgbotapi.NewKeyboardButton(btnPeriodMonth),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPeriodQuarter),
			tgbotapi.NewKeyboardButton(btnPeriodYear),
			tgbotapi.NewKeyboardButton(btnMenu),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func formatKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFormatTable),
			tgbotapi.NewKeyboardButton(btnFormatPie),
			tgbotapi.NewKeyboardButton(btnFormatGraph),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMenu),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func categoryKeyboard(categories []model.Category, withBack bool) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(categories)+1)
	for _, cat := range categories {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(cat.Name),
		))
	}
	if withBack {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBack),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}
