package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/clients"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// DecisionRepo хранит первое нажатие админа по заказу до второго "Да" или истечения DecisionTTL.
type DecisionRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewDecisionRepo(client *clients.RedisClient, cfg *cfg.RedisCfg) *DecisionRepo {
	return &DecisionRepo{
		client: client,
		cfg:    cfg,
	}
}

func (d *DecisionRepo) Put(ctx context.Context, adminID, orderID int64, action usecase.DecisionAction) error {
	if err := d.client.Client.Set(ctx, decisionKey(adminID, orderID), string(action), d.cfg.DecisionTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// Take забирает намерение через GETDEL, поэтому два одинаковых "Да" не пройдут оба.
func (d *DecisionRepo) Take(ctx context.Context, adminID, orderID int64) (usecase.DecisionAction, error) {
	action, err := d.client.Client.GetDel(ctx, decisionKey(adminID, orderID)).Result()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return "", e.ErrNoDecisionIntent
		}
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	da := usecase.DecisionAction(action)
	if !da.Valid() {
		return "", e.ErrNoDecisionIntent
	}
	return da, nil
}

func (d *DecisionRepo) Delete(ctx context.Context, adminID, orderID int64) error {
	if err := d.client.Client.Del(ctx, decisionKey(adminID, orderID)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// ClaimDelivery ставит ключ через SET NX. TTL снимает захват, если процесс упал посреди выдачи.
func (d *DecisionRepo) ClaimDelivery(ctx context.Context, orderID int64) (bool, error) {
	ok, err := d.client.Client.SetNX(ctx, deliveryKey(orderID), "1", d.cfg.DeliveryLockTTL).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	return ok, nil
}

func (d *DecisionRepo) ReleaseDelivery(ctx context.Context, orderID int64) error {
	if err := d.client.Client.Del(ctx, deliveryKey(orderID)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func deliveryKey(orderID int64) string {
	return fmt.Sprintf("delivery:%d", orderID)
}

func decisionKey(adminID, orderID int64) string {
	return fmt.Sprintf("decision:%d:%d", adminID, orderID)
}
