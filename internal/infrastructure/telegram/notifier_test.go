package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []tgbotapi.Chattable
	err   error
	block chan struct{}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeImages map[string][]byte

func (f fakeImages) Get(_ context.Context, key string) (*domain.Image, error) {
	data, ok := f[key]
	if !ok {
		return nil, e.ErrImageNotFound
	}
	return domain.NewImage(key, data, "image/png"), nil
}

type fakeMarkup struct{}

func (fakeMarkup) Review(orderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("review", "review"),
	))
}

func (fakeMarkup) Redelivery(orderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("retry", "retry"),
	))
}

func setupTestNotifier(sender *fakeSender) *Notifier {
	images := fakeImages{"products/1/a.png": []byte("png-bytes")}
	return NewNotifier(sender, images, fakeMarkup{}, time.Second, logger.NewNopLogger())
}

func TestNotifier_SendText(t *testing.T) {
	sender := &fakeSender{}
	n := setupTestNotifier(sender)

	require.NoError(t, n.SendText(context.Background(), 42, "hello"))

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
}

func TestNotifier_SendImage(t *testing.T) {
	sender := &fakeSender{}
	n := setupTestNotifier(sender)

	require.NoError(t, n.SendImage(context.Background(), 42, "products/1/a.png", "caption"))

	require.Len(t, sender.sent, 1)
	photo, ok := sender.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "caption", photo.Caption)
	file, ok := photo.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), file.Bytes)
}

func TestNotifier_SendImage_Missing(t *testing.T) {
	sender := &fakeSender{}
	n := setupTestNotifier(sender)

	err := n.SendImage(context.Background(), 42, "products/1/missing.png", "caption")
	assert.ErrorIs(t, err, e.ErrImageNotFound)
	assert.Empty(t, sender.sent)
}

func TestNotifier_ReviewRequestCarriesKeyboard(t *testing.T) {
	sender := &fakeSender{}
	n := setupTestNotifier(sender)

	require.NoError(t, n.SendReviewRequest(context.Background(), 42, 7, "order"))
	require.NoError(t, n.SendRedeliveryRequest(context.Background(), 42, 7, "stuck"))

	require.Len(t, sender.sent, 2)
	review := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, fakeMarkup{}.Review(7), review.ReplyMarkup)
	redeliver := sender.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, fakeMarkup{}.Redelivery(7), redeliver.ReplyMarkup)
}

func TestNotifier_SendError(t *testing.T) {
	boom := errors.New("forbidden: bot was blocked by the user")
	n := setupTestNotifier(&fakeSender{err: boom})

	err := n.SendText(context.Background(), 42, "hello")
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_SendTimeout(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	defer close(sender.block)

	n := setupTestNotifier(sender)
	n.sendTimeout = 20 * time.Millisecond

	err := n.SendText(context.Background(), 42, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
