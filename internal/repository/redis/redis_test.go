package redis

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/repository/redis/converter"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/clients"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	r "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *clients.RedisClient, *cfg.RedisCfg) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &clients.RedisClient{Client: r.NewClient(&r.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Client.Close() })

	return mr, client, &cfg.RedisCfg{
		ConversationTTL: 30 * time.Minute,
		DecisionTTL:     10 * time.Minute,
		DeliveryLockTTL: 2 * time.Minute,
		CatalogTTL:      time.Minute,
	}
}

func TestSessionRepo_SaveGetDelete(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewSessionRepo(client, redisCfg)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Active(ctx, 7)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)

	session, _ := conversation.StartProduct(7, now)
	session.Product.Name = "Item"
	session.Product.Price = decimal.RequireFromString("10.5")
	require.NoError(t, repo.Save(ctx, session))

	kind, err := repo.Active(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, conversation.FlowProduct, kind)

	got, err := repo.Get(ctx, 7, conversation.FlowProduct)
	require.NoError(t, err)
	assert.Equal(t, "Item", got.Product.Name)
	assert.True(t, got.Product.Price.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, conversation.StepName, got.Step)

	assert.Equal(t, 30*time.Minute, mr.TTL("conv:7:product"))

	require.NoError(t, repo.Delete(ctx, 7, conversation.FlowProduct))
	_, err = repo.Get(ctx, 7, conversation.FlowProduct)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
	_, err = repo.Active(ctx, 7)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
}

func TestSessionRepo_DeleteKeepsOtherActiveFlow(t *testing.T) {
	_, client, redisCfg := setupTestRedis(t)
	repo := NewSessionRepo(client, redisCfg)
	ctx := context.Background()
	now := time.Now()

	product, _ := conversation.StartProduct(7, now)
	require.NoError(t, repo.Save(ctx, product))
	require.NoError(t, repo.Save(ctx, conversation.SelectProduct(7, "admin", 1, now)))

	require.NoError(t, repo.Delete(ctx, 7, conversation.FlowProduct))

	kind, err := repo.Active(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, conversation.FlowOrder, kind)
}

func TestSessionRepo_Expires(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewSessionRepo(client, redisCfg)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, conversation.SelectProduct(8, "u", 1, time.Now())))
	mr.FastForward(31 * time.Minute)

	_, err := repo.Active(ctx, 8)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
	_, err = repo.Get(ctx, 8, conversation.FlowOrder)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
}

func TestSessionRepo_Corrupt(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewSessionRepo(client, redisCfg)

	require.NoError(t, mr.Set("conv:9:order", "{not json"))
	_, err := repo.Get(context.Background(), 9, conversation.FlowOrder)
	assert.ErrorIs(t, err, e.ErrSessionCorrupt)
}

func TestDecisionRepo_TakeOnce(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewDecisionRepo(client, redisCfg)
	ctx := context.Background()

	_, err := repo.Take(ctx, 1, 2)
	assert.ErrorIs(t, err, e.ErrNoDecisionIntent)

	require.NoError(t, repo.Put(ctx, 1, 2, usecase.DecisionConfirm))
	assert.Equal(t, 10*time.Minute, mr.TTL("decision:1:2"))

	action, err := repo.Take(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, usecase.DecisionConfirm, action)

	_, err = repo.Take(ctx, 1, 2)
	assert.ErrorIs(t, err, e.ErrNoDecisionIntent)
}

func TestDecisionRepo_DeleteAndExpire(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewDecisionRepo(client, redisCfg)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, 1, 2, usecase.DecisionReject))
	require.NoError(t, repo.Delete(ctx, 1, 2))
	_, err := repo.Take(ctx, 1, 2)
	assert.ErrorIs(t, err, e.ErrNoDecisionIntent)

	require.NoError(t, repo.Put(ctx, 1, 3, usecase.DecisionReject))
	mr.FastForward(11 * time.Minute)
	_, err = repo.Take(ctx, 1, 3)
	assert.ErrorIs(t, err, e.ErrNoDecisionIntent)
}

func TestDecisionRepo_ClaimDelivery(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewDecisionRepo(client, redisCfg)
	ctx := context.Background()

	ok, err := repo.ClaimDelivery(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Minute, mr.TTL("delivery:7"))

	ok, err = repo.ClaimDelivery(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	// другой заказ захватывается независимо
	ok, err = repo.ClaimDelivery(ctx, 8)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ReleaseDelivery(ctx, 7))
	ok, err = repo.ClaimDelivery(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(3 * time.Minute)
	ok, err = repo.ClaimDelivery(ctx, 8)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheRepo_Available(t *testing.T) {
	mr, client, redisCfg := setupTestRedis(t)
	repo := NewCacheRepo(client, converter.ProductConv{}, redisCfg, logger.NewNopLogger())
	ctx := context.Background()

	_, ok, err := repo.GetAvailable(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	products := []domain.Product{{
		ID:          1,
		Name:        "Item",
		Description: "Desc",
		Price:       decimal.RequireFromString("10.25"),
		Image1:      "a",
		Image2:      "b",
		Coordinates: "1,2",
		IsAvailable: true,
	}}
	require.NoError(t, repo.SetAvailable(ctx, products))

	got, ok, err := repo.GetAvailable(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Item", got[0].Name)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("10.25")))
	assert.Equal(t, domain.ImageRef("b"), got[0].Image2)

	require.NoError(t, repo.Invalidate(ctx))
	_, ok, err = repo.GetAvailable(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set(catalogKey, "garbage"))
	_, ok, err = repo.GetAvailable(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(catalogKey))
}

func TestCacheRepo_EmptyListIsAHit(t *testing.T) {
	_, client, redisCfg := setupTestRedis(t)
	repo := NewCacheRepo(client, converter.ProductConv{}, redisCfg, logger.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, repo.SetAvailable(ctx, nil))
	got, ok, err := repo.GetAvailable(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}
