package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Фото Telegram всегда перекодирует в JPEG.
const photoMimeType = "image/jpeg"

// Bot — часть *tgbotapi.BotAPI, через которую обработчик отвечает пользователю.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Handler маршрутизирует апдейты в usecase и отрисовывает ответы.
type Handler struct {
	bot     Bot
	files   Downloader
	catalog usecase.CatalogUC
	orders  usecase.OrderUC
	dialogs usecase.ConversationUC
	admins  domain.AdminSet
	logger  logger.Logger
}

func NewHandler(
	bot Bot,
	files Downloader,
	catalog usecase.CatalogUC,
	orders usecase.OrderUC,
	dialogs usecase.ConversationUC,
	admins domain.AdminSet,
	logger logger.Logger,
) *Handler {
	return &Handler{
		bot:     bot,
		files:   files,
		catalog: catalog,
		orders:  orders,
		dialogs: dialogs,
		admins:  admins,
		logger:  logger,
	}
}

func (h *Handler) Handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

// MESSAGES

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	chatID := msg.Chat.ID
	user := usecase.User{ID: msg.From.ID, Username: msg.From.UserName}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.reply(chatID, welcomeText, mainMenu())
		case "admin":
			h.adminPanel(chatID, user)
		}
		return
	}

	if len(msg.Photo) > 0 || msg.Document != nil {
		h.handleImage(ctx, chatID, user, msg)
		return
	}

	// Кнопки меню имеют приоритет над вводом в диалоге
	switch msg.Text {
	case "":
		return
	case BtnMainMenu:
		h.reply(chatID, welcomeText, mainMenu())
	case BtnBrowse:
		h.browse(ctx, chatID)
	case BtnInfo:
		h.reply(chatID, infoText, nil)
	case BtnSupport:
		h.reply(chatID, supportText, nil)
	case BtnAddProduct:
		h.addProduct(ctx, chatID, user)
	case BtnViewOrders:
		h.pendingOrders(ctx, chatID, user)
	case BtnAvailable:
		h.availableProducts(ctx, chatID, user)
	default:
		h.handleText(ctx, chatID, user, msg.Text)
	}
}

func (h *Handler) adminPanel(chatID int64, user usecase.User) {
	if _, err := h.admins.Authorize(user.ID); err != nil {
		h.reply(chatID, notAdminText, nil)
		return
	}
	h.reply(chatID, adminPanelText, adminMenu())
}

func (h *Handler) browse(ctx context.Context, chatID int64) {
	products, err := h.catalog.ListAvailable(ctx)
	if err != nil {
		h.fail(chatID, err)
		return
	}

	if len(products) == 0 {
		h.reply(chatID, noProductsText, nil)
		return
	}

	for i := range products {
		h.reply(chatID, productCard(&products[i]), buyKeyboard(products[i].ID))
	}
}

func (h *Handler) addProduct(ctx context.Context, chatID int64, user usecase.User) {
	admin, err := h.admins.Authorize(user.ID)
	if err != nil {
		h.reply(chatID, notAuthorized, nil)
		return
	}

	reply, err := h.dialogs.StartAddProduct(ctx, admin)
	if err != nil {
		h.fail(chatID, err)
		return
	}
	h.render(chatID, reply)
}

func (h *Handler) pendingOrders(ctx context.Context, chatID int64, user usecase.User) {
	admin, err := h.admins.Authorize(user.ID)
	if err != nil {
		h.reply(chatID, notAuthorized, nil)
		return
	}

	orders, err := h.orders.ListPending(ctx, admin)
	if err != nil {
		h.fail(chatID, err)
		return
	}

	if len(orders) == 0 {
		h.reply(chatID, noPendingText, nil)
		return
	}

	for i := range orders {
		o := &orders[i]
		h.reply(chatID, usecase.OrderSummary(usecase.HeaderPendingOrder, &o.Order, &o.Product), Keyboards{}.Review(o.Order.ID))
	}
}

func (h *Handler) availableProducts(ctx context.Context, chatID int64, user usecase.User) {
	if _, err := h.admins.Authorize(user.ID); err != nil {
		h.reply(chatID, notAuthorized, nil)
		return
	}

	products, err := h.catalog.ListAvailable(ctx)
	if err != nil {
		h.fail(chatID, err)
		return
	}

	if len(products) == 0 {
		h.reply(chatID, noProductsText, nil)
		return
	}

	lines := make([]string, 0, len(products)+1)
	lines = append(lines, BtnAvailable+":")
	for i := range products {
		lines = append(lines, adminProductLine(&products[i]))
	}
	h.reply(chatID, strings.Join(lines, "\n"), nil)
}

func (h *Handler) handleText(ctx context.Context, chatID int64, user usecase.User, text string) {
	reply, err := h.dialogs.HandleText(ctx, user, text)
	if errors.Is(err, e.ErrNoActiveFlow) {
		h.logger.Debugf("Text outside of a conversation ignored. user_id: %d", user.ID)
		return
	}
	if err != nil {
		h.fail(chatID, err)
		return
	}
	h.render(chatID, reply)
}

// handleImage берёт фото наибольшего размера или документ-изображение.
// Всё остальное передаётся в диалог как пустой ввод изображения и будет отклонено.
func (h *Handler) handleImage(ctx context.Context, chatID int64, user usecase.User, msg *tgbotapi.Message) {
	var upload *usecase.ImageUpload

	if fileID, mimeType := pickImage(msg); fileID != "" {
		data, err := h.files.Download(ctx, fileID)
		if err != nil {
			h.fail(chatID, err)
			return
		}
		upload = &usecase.ImageUpload{Data: data, MimeType: mimeType}
	}

	reply, err := h.dialogs.HandleImage(ctx, user, upload)
	if errors.Is(err, e.ErrNoActiveFlow) {
		h.logger.Debugf("Image outside of a conversation ignored. user_id: %d", user.ID)
		return
	}
	if err != nil {
		h.fail(chatID, err)
		return
	}
	h.render(chatID, reply)
}

func pickImage(msg *tgbotapi.Message) (string, string) {
	if len(msg.Photo) > 0 {
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return best.FileID, photoMimeType
	}

	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, msg.Document.MimeType
	}

	return "", ""
}

// render показывает результат хода диалога.
func (h *Handler) render(chatID int64, reply *usecase.Reply) {
	switch {
	case reply.Rejected != nil:
		h.reply(chatID, rejectionText(reply.Rejected, reply.Prompt), nil)
	case reply.Flow == conversation.FlowProduct && reply.Product != nil:
		h.reply(chatID, productAddedText, adminMenu())
	case reply.Order != nil:
		h.reply(chatID, orderCreatedText, mainMenu())
	case reply.Prompt != "":
		h.reply(chatID, stepPrompt(reply.Prompt), nil)
	}
}

// CALLBACKS

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	h.answer(q.ID)

	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}

	chatID, msgID := q.Message.Chat.ID, q.Message.MessageID
	user := usecase.User{ID: q.From.ID, Username: q.From.UserName}

	cmd, err := ParseCommand(q.Data)
	if err != nil {
		h.logger.Warnf("Bad callback data. user_id: %d, error: %v", user.ID, err)
		h.reply(chatID, errorText(err), nil)
		return
	}

	if cmd.IsAdmin() {
		admin, err := h.admins.Authorize(user.ID)
		if err != nil {
			h.logger.Warnf("Admin command from non-admin. user_id: %d, command: %s", user.ID, cmd.Kind)
			h.reply(chatID, notAuthorized, nil)
			return
		}
		h.handleAdminCommand(ctx, chatID, msgID, admin, cmd)
		return
	}

	switch cmd.Kind {
	case CmdBuy:
		if _, err := h.dialogs.SelectProduct(ctx, user, cmd.ProductID); err != nil {
			h.fail(chatID, err)
			return
		}
		kb := chainKeyboard()
		h.edit(chatID, msgID, selectChainText, &kb, "")

	case CmdChain:
		if _, err := h.dialogs.SelectBlockchain(ctx, user, cmd.Chain); err != nil {
			h.fail(chatID, err)
			return
		}
		kb := tokenKeyboard()
		h.edit(chatID, msgID, selectTokenText, &kb, "")

	case CmdToken:
		reply, err := h.dialogs.SelectToken(ctx, user, cmd.Token)
		if err != nil {
			h.fail(chatID, err)
			return
		}
		h.edit(chatID, msgID, paymentInstructions(reply.Instructions), nil, tgbotapi.ModeMarkdown)
	}
}

func (h *Handler) handleAdminCommand(ctx context.Context, chatID int64, msgID int, admin domain.Admin, cmd Command) {
	switch cmd.Kind {
	case CmdDecide:
		owp, err := h.orders.RequestDecision(ctx, admin, cmd.OrderID, cmd.Action)
		if err != nil {
			h.fail(chatID, err)
			return
		}
		text := decisionQuestion(cmd.Action) + "\n\n" + usecase.OrderSummary(usecase.HeaderPendingOrder, &owp.Order, &owp.Product)
		kb := decisionKeyboard(cmd.OrderID, cmd.Action)
		h.edit(chatID, msgID, text, &kb, "")

	case CmdNo:
		if err := h.orders.CancelDecision(ctx, admin, cmd.OrderID, cmd.Action); err != nil {
			h.fail(chatID, err)
			return
		}
		kb := Keyboards{}.Review(cmd.OrderID)
		h.edit(chatID, msgID, cancelledText, &kb, "")

	case CmdYes:
		switch cmd.Action {
		case usecase.DecisionConfirm:
			res, err := h.orders.Confirm(ctx, admin, cmd.OrderID)
			if err != nil {
				h.fail(chatID, err)
				return
			}
			h.renderDelivery(chatID, msgID, res)

		case usecase.DecisionReject:
			if _, err := h.orders.Reject(ctx, admin, cmd.OrderID); err != nil {
				h.fail(chatID, err)
				return
			}
			h.edit(chatID, msgID, rejectedText, nil, "")
		}

	case CmdRedeliver:
		res, err := h.orders.Redeliver(ctx, admin, cmd.OrderID)
		if err != nil {
			h.fail(chatID, err)
			return
		}
		h.renderDelivery(chatID, msgID, res)
	}
}

// renderDelivery различает "товар выдан" и "заказ подтверждён, но выдача не удалась".
func (h *Handler) renderDelivery(chatID int64, msgID int, res *usecase.DeliveryRes) {
	if res.Delivered {
		h.edit(chatID, msgID, confirmedText, nil, "")
		return
	}

	kb := Keyboards{}.Redelivery(res.Order.ID)
	h.edit(chatID, msgID, deliveryFailed, &kb, "")
}

// TRANSPORT HELPERS

func (h *Handler) reply(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warnf("Failed to send reply. chat_id: %d, error: %v", chatID, err)
	}
}

func (h *Handler) edit(chatID int64, msgID int, text string, markup *tgbotapi.InlineKeyboardMarkup, parseMode string) {
	cfg := tgbotapi.NewEditMessageText(chatID, msgID, text)
	cfg.ReplyMarkup = markup
	cfg.ParseMode = parseMode

	if _, err := h.bot.Send(cfg); err != nil {
		h.logger.Warnf("Failed to edit message. chat_id: %d, message_id: %d, error: %v", chatID, msgID, err)
	}
}

// answer гасит индикатор загрузки на нажатой кнопке.
func (h *Handler) answer(callbackID string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		h.logger.Debugf("Failed to answer callback: %v", err)
	}
}

// fail показывает пользователю понятную причину. Неожиданные ошибки логируются целиком.
func (h *Handler) fail(chatID int64, err error) {
	text := errorText(err)
	if text == genericErrText {
		h.logger.Errorf(err, "Update handling failed. chat_id: %d", chatID)
	} else {
		h.logger.Debugf("Update rejected. chat_id: %d, reason: %v", chatID, err)
	}
	h.reply(chatID, text, nil)
}
