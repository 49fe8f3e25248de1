package telegram

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	seen    map[int64][]int
	panicOn int
	delay   time.Duration
}

func (h *recordingHandler) Handle(_ context.Context, update tgbotapi.Update) {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	if update.UpdateID == h.panicOn {
		panic("boom")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	user := update.SentFrom()
	h.seen[user.ID] = append(h.seen[user.ID], update.UpdateID)
}

func messageUpdate(id int, userID int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: userID},
			Text: "hi",
		},
	}
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	handler := &recordingHandler{seen: make(map[int64][]int), delay: time.Millisecond}
	d := NewDispatcher(handler, 4, logger.NewNopLogger())

	updates := make(chan tgbotapi.Update)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), updates) }()

	users := []int64{11, 12, 13, 14, 15}
	want := make(map[int64][]int)
	for i := 1; i <= 50; i++ {
		user := users[i%len(users)]
		want[user] = append(want[user], i)
		updates <- messageUpdate(i, user)
	}
	close(updates)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop after updates channel was closed")
	}

	assert.Equal(t, want, handler.seen)
}

func TestDispatcher_SurvivesPanic(t *testing.T) {
	handler := &recordingHandler{seen: make(map[int64][]int), panicOn: 1}
	d := NewDispatcher(handler, 1, logger.NewNopLogger())

	updates := make(chan tgbotapi.Update, 2)
	updates <- messageUpdate(1, 7)
	updates <- messageUpdate(2, 7)
	close(updates)

	require.NoError(t, d.Run(context.Background(), updates))
	assert.Equal(t, []int{2}, handler.seen[7])
}

func TestDispatcher_StopsOnContextCancel(t *testing.T) {
	handler := &recordingHandler{seen: make(map[int64][]int)}
	d := NewDispatcher(handler, 2, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, make(chan tgbotapi.Update)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestDispatcher_Shard(t *testing.T) {
	d := NewDispatcher(&recordingHandler{}, 3, logger.NewNopLogger())

	assert.Equal(t, 0, d.shard(tgbotapi.Update{}))
	assert.Equal(t, d.shard(messageUpdate(1, 10)), d.shard(messageUpdate(2, 10)))
	assert.Equal(t, 1, d.shard(messageUpdate(1, 10)))

	for _, id := range []int64{-10, -1, math.MinInt64, math.MaxInt64} {
		got := d.shard(messageUpdate(1, id))
		assert.GreaterOrEqual(t, got, 0, "user %d", id)
		assert.Less(t, got, 3, "user %d", id)
	}
	assert.Equal(t, 2, d.shard(messageUpdate(1, math.MinInt64)))
}
