package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jimlawless/whereami"
)

// Sender — часть *tgbotapi.BotAPI, которой пользуется бот. *tgbotapi.BotAPI реализует его как есть.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ImageSource отдаёт содержимое изображения по ключу объекта.
type ImageSource interface {
	Get(ctx context.Context, key string) (*domain.Image, error)
}

// Markup строит inline-клавиатуры для админских уведомлений.
type Markup interface {
	Review(orderID int64) tgbotapi.InlineKeyboardMarkup
	Redelivery(orderID int64) tgbotapi.InlineKeyboardMarkup
}

// Notifier отправляет сообщения через Telegram Bot API. Каждая отправка — одна попытка.
type Notifier struct {
	sender      Sender
	images      ImageSource
	markup      Markup
	sendTimeout time.Duration
	logger      logger.Logger
}

func NewNotifier(sender Sender, images ImageSource, markup Markup, sendTimeout time.Duration, logger logger.Logger) *Notifier {
	return &Notifier{
		sender:      sender,
		images:      images,
		markup:      markup,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

func (n *Notifier) SendText(ctx context.Context, recipient int64, text string) error {
	return n.send(ctx, tgbotapi.NewMessage(recipient, text))
}

// SendImage скачивает изображение из хранилища и отправляет его байтами.
// Telegram не видит MinIO, поэтому ссылку отдать нельзя.
func (n *Notifier) SendImage(ctx context.Context, recipient int64, image domain.ImageRef, caption string) error {
	img, err := n.images.Get(ctx, string(image))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	photo := tgbotapi.NewPhoto(recipient, tgbotapi.FileBytes{Name: string(image), Bytes: img.Data})
	photo.Caption = caption

	return n.send(ctx, photo)
}

func (n *Notifier) SendReviewRequest(ctx context.Context, recipient int64, orderID int64, text string) error {
	msg := tgbotapi.NewMessage(recipient, text)
	msg.ReplyMarkup = n.markup.Review(orderID)
	return n.send(ctx, msg)
}

func (n *Notifier) SendRedeliveryRequest(ctx context.Context, recipient int64, orderID int64, text string) error {
	msg := tgbotapi.NewMessage(recipient, text)
	msg.ReplyMarkup = n.markup.Redelivery(orderID)
	return n.send(ctx, msg)
}

// send ограничивает отправку sendTimeout. Клиент Bot API не принимает контекст,
// поэтому вызов уходит в горутину, а ожидание прерывается по контексту.
func (n *Notifier) send(ctx context.Context, c tgbotapi.Chattable) error {
	ctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := n.sender.Send(c)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		return nil
	case <-ctx.Done():
		n.logger.Warnf("telegram send timed out after %s", n.sendTimeout)
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}
