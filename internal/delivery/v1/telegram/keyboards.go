package telegram

import (
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBrowse), tgbotapi.NewKeyboardButton(BtnInfo)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSupport)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAddProduct), tgbotapi.NewKeyboardButton(BtnViewOrders)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAvailable), tgbotapi.NewKeyboardButton(BtnMainMenu)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func buyKeyboard(productID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button(BtnBuy, BuyCommand(productID))),
	)
}

// chainKeyboard: Polygon и Solana в первой строке, BSC отдельной строкой.
func chainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(domain.Polygon.Title(), ChainCommand(domain.Polygon)),
			button(domain.Solana.Title(), ChainCommand(domain.Solana)),
		),
		tgbotapi.NewInlineKeyboardRow(button(domain.BSC.Title(), ChainCommand(domain.BSC))),
	)
}

func tokenKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(domain.SupportedTokens))
	for _, token := range domain.SupportedTokens {
		row = append(row, button(string(token), TokenCommand(token)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func decisionKeyboard(orderID int64, action usecase.DecisionAction) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(BtnYes, DecisionCommand(CmdYes, action, orderID)),
			button(BtnNo, DecisionCommand(CmdNo, action, orderID)),
		),
	)
}

// Keyboards отдаёт клавиатуры админских уведомлений, которые отправляет Notifier.
type Keyboards struct{}

func (Keyboards) Review(orderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(BtnConfirm, DecisionCommand(CmdDecide, usecase.DecisionConfirm, orderID)),
			button(BtnReject, DecisionCommand(CmdDecide, usecase.DecisionReject, orderID)),
		),
	)
}

func (Keyboards) Redelivery(orderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button(BtnRetryDelivery, RedeliverCommand(orderID))),
	)
}

func button(text string, cmd Command) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, cmd.Encode())
}
