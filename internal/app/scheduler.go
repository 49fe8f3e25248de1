package app

import (
	"context"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/robfig/cron/v3"
)

const stuckSweepTimeout = 2 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// cronLogger пишет события планировщика в общий логгер.
type cronLogger struct {
	logger logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Errorf(err, "cron: %s %v", msg, keysAndValues)
}

// newScheduler регистрирует фоновые задачи. Задача не запускается повторно, пока не закончилась предыдущая.
func newScheduler(ctx context.Context, jobs *cfg.JobsCfg, orderUC usecase.OrderUC, log logger.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger: log}
	sched := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := sched.AddFunc(jobs.StuckOrdersSpec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, stuckSweepTimeout)
		defer cancel()

		if err := orderUC.NotifyStuckDeliveries(jobCtx, jobs.StuckOrderAge); err != nil {
			log.Errorf(err, "stuck deliveries sweep failed")
		}
	})
	if err != nil {
		return nil, e.Wrap("STUCK_ORDERS_CRON", err)
	}

	return sched, nil
}
