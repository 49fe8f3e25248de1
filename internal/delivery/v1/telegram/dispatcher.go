package telegram

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

const queueSize = 64

type UpdateHandler interface {
	Handle(ctx context.Context, update tgbotapi.Update)
}

// Dispatcher раздаёт апдейты по воркерам по id пользователя: апдейты одного пользователя
// всегда обрабатываются одним воркером по очереди, разные пользователи — параллельно.
type Dispatcher struct {
	handler UpdateHandler
	workers int
	logger  logger.Logger
}

func NewDispatcher(handler UpdateHandler, workers int, logger logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}

	return &Dispatcher{
		handler: handler,
		workers: workers,
		logger:  logger,
	}
}

// Run читает updates, пока канал не закрыт или ctx не отменён. Уже принятые апдейты
// дообрабатываются после отмены, поэтому обработчик получает контекст без отмены.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	g, gctx := errgroup.WithContext(ctx)
	handleCtx := context.WithoutCancel(ctx)

	queues := make([]chan tgbotapi.Update, d.workers)
	for i := range queues {
		queue := make(chan tgbotapi.Update, queueSize)
		queues[i] = queue

		g.Go(func() error {
			for update := range queue {
				d.handle(handleCtx, update)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()

		for {
			select {
			case <-gctx.Done():
				return nil
			case update, ok := <-updates:
				if !ok {
					return nil
				}

				select {
				case queues[d.shard(update)] <- update:
				case <-gctx.Done():
					return nil
				}
			}
		}
	})

	return g.Wait()
}

func (d *Dispatcher) shard(update tgbotapi.Update) int {
	user := update.SentFrom()
	if user == nil {
		return 0
	}

	// Через uint64 отрицательные id, включая MinInt64, дают индекс в пределах [0, workers).
	return int(uint64(user.ID) % uint64(d.workers))
}

// handle не даёт панике в обработчике остановить воркер.
func (d *Dispatcher) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf(fmt.Errorf("panic: %v", r), "Update handler panicked. update_id: %d, stack: %s", update.UpdateID, debug.Stack())
		}
	}()

	d.handler.Handle(ctx, update)
}
