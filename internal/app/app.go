package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	v1Grpc "github.com/DRSN-tech/cryptoshop-bot/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/cryptoshop-bot/internal/delivery/v1/http"
	v1Telegram "github.com/DRSN-tech/cryptoshop-bot/internal/delivery/v1/telegram"
	"github.com/DRSN-tech/cryptoshop-bot/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/cryptoshop-bot/internal/infrastructure/minio"
	tgInfra "github.com/DRSN-tech/cryptoshop-bot/internal/infrastructure/telegram"
	s3Repo "github.com/DRSN-tech/cryptoshop-bot/internal/repository/minio"
	"github.com/DRSN-tech/cryptoshop-bot/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/cryptoshop-bot/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/cryptoshop-bot/internal/repository/redis"
	redisConv "github.com/DRSN-tech/cryptoshop-bot/internal/repository/redis/converter"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/clients"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/closer"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/postgres"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/tr"
	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jimlawless/whereami"
	"github.com/robfig/cron/v3"
)

const (
	startupTimeout   = 10 * time.Second
	shutdownTimeout  = 15 * time.Second
	healthInterval   = 15 * time.Second
	kafkaTopicWait   = 10 * time.Second
	cleanupWaitLimit = 5 * time.Second
)

// App собирает все компоненты бота и управляет их жизненным циклом.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	// Отменяется при остановке; фоновые задачи (cron, outbox, очистка MinIO) живут в нём.
	ctx    context.Context
	cancel context.CancelFunc

	bot         *tgbotapi.BotAPI
	dispatcher  *v1Telegram.Dispatcher
	outbox      *kafka.OutboxWorker
	scheduler   *cron.Cron
	httpSrv     *v1Http.Server
	grpcSrv     *v1Grpc.GRPCServer
	imagesInfra *minioInfra.MinioInfrastructure
	checks      []v1Grpc.DependencyCheck
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
		ctx:    ctx,
		cancel: cancel,
	}

	if err := a.init(); err != nil {
		cancel()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		if cerr := a.closer.Close(closeCtx); cerr != nil {
			log.Warnf("partial init cleanup: %v", cerr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	cfg, log := a.cfg, a.logger

	if len(cfg.Admins) == 0 {
		log.Warnf("ADMIN_IDS is empty, orders can not be confirmed")
	}

	startCtx, startCancel := context.WithTimeout(a.ctx, startupTimeout)
	defer startCancel()

	// === PostgreSQL ===
	db, err := initPGDB(startCtx, log, cfg)
	if err != nil {
		return err
	}
	a.closer.AddSimple("postgres", db.Close)

	productConv := pgdbConv.ProductConv{}
	productRepo := pgdb.NewProductRepo(db.Pool, productConv)
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConv{}, productConv)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConv{})
	transactor := tr.NewTransactor(db.Pool)

	// === Redis ===
	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
	if err := redisClient.Ping(startCtx); err != nil {
		log.Errorf(err, "failed to connect to redis")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductConv{}, cfg.Redis, log)
	sessionRepo := redis.NewSessionRepo(redisClient, cfg.Redis)
	decisionRepo := redis.NewDecisionRepo(redisClient, cfg.Redis)

	// === MinIO ===
	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		return err
	}
	if err := clients.EnsureBucket(startCtx, minioClient, cfg.Minio.BucketName); err != nil {
		log.Errorf(err, "failed to initialize MinIO bucket")
		return err
	}

	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)
	a.imagesInfra = minioInfra.NewMinioInfrastructure(imageRepo, cfg.Minio, log, a.ctx)

	// === Kafka ===
	producer := kafka.NewProducer(log, cfg.Kafka)
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })
	if err := producer.EnsureTopic(kafkaTopicWait); err != nil {
		log.Errorf(err, "failed to ensure kafka topic %s", cfg.Kafka.Topic)
		return err
	}
	a.outbox = kafka.NewOutboxWorker(outboxRepo, log, producer, pgdb.OutboxChannel, db.Dsn)

	// === Telegram ===
	bot, err := clients.NewTelegramBot(cfg.Bot)
	if err != nil {
		log.Errorf(err, "failed to initialize telegram bot")
		return err
	}
	a.bot = bot
	log.Infof("authorized as @%s", bot.Self.UserName)

	notifier := tgInfra.NewNotifier(bot, imageRepo, v1Telegram.Keyboards{}, cfg.Bot.SendTimeout, log)

	// === Use cases ===
	catalogUC := usecase.NewCatalogUC(productRepo, outboxRepo, cacheRepo, transactor, log)
	orderUC := usecase.NewOrderUC(productRepo, orderRepo, outboxRepo, decisionRepo, cacheRepo, transactor, notifier, cfg.Admins, log)
	conversationUC := usecase.NewConversationUC(sessionRepo, catalogUC, orderUC, a.imagesInfra, cfg.Shop.Addresses, log)

	handler := v1Telegram.NewHandler(
		bot,
		v1Telegram.NewFileLoader(bot, cfg.Minio.MaxImageSize),
		catalogUC,
		orderUC,
		conversationUC,
		cfg.Admins,
		log,
	)
	a.dispatcher = v1Telegram.NewDispatcher(handler, cfg.Bot.UpdateWorkers, log)

	// === Jobs ===
	a.scheduler, err = newScheduler(a.ctx, cfg.Jobs, orderUC, log)
	if err != nil {
		log.Errorf(err, "failed to initialize scheduler")
		return err
	}

	// === HTTP / gRPC ===
	a.checks = []v1Grpc.DependencyCheck{
		{Name: "postgres", Check: db.Ping},
		{Name: "redis", Check: redisClient.Ping},
	}

	httpChecks := make([]v1Http.ReadinessCheck, 0, len(a.checks))
	for _, c := range a.checks {
		httpChecks = append(httpChecks, v1Http.ReadinessCheck{Name: c.Name, Check: c.Check})
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(catalogUC, orderUC, cfg.Admins, cfg.Http.AdminAPIToken, cfg.Jobs.StuckOrderAge, httpChecks...)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)

	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, log)
	a.grpcSrv.RegisterServices()

	return nil
}

// Run запускает фоновые процессы и блокируется до сигнала остановки или фатальной ошибки.
func (a *App) Run() error {
	log := a.logger

	a.outbox.Start(a.ctx)
	a.closer.AddSimple("outbox worker", a.outbox.Stop)

	a.closer.Add("minio cleanup", a.waitForCleanup)

	errCh := make(chan error, 2)

	go a.grpcSrv.WatchDependencies(a.ctx, healthInterval, a.checks...)
	go func() {
		log.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			log.Errorf(err, "gRPC server failed")
			errCh <- err
		}
	}()
	a.closer.Add("grpc server", a.grpcSrv.Stop)

	go func() {
		log.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()
	a.closer.Add("http server", a.httpSrv.Stop)

	a.scheduler.Start()
	a.closer.Add("scheduler", func(ctx context.Context) error {
		select {
		case <-a.scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	// Регистрируется последним, поэтому закрывается первым: новые апдейты
	// перестают приниматься, уже принятые дообрабатываются.
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := a.dispatcher.Run(a.ctx, clients.UpdatesChannel(a.bot, a.cfg.Bot)); err != nil {
			log.Errorf(err, "update dispatcher failed")
		}
	}()
	a.closer.Add("telegram updates", func(ctx context.Context) error {
		a.bot.StopReceivingUpdates()
		select {
		case <-dispatcherDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	log.Infof("bot started, update workers: %d", a.cfg.Bot.UpdateWorkers)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		log.Errorf(appErr, "server fatal error")
	case <-shutdown:
		log.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	closeErr := a.closer.Close(shutdownCtx)
	a.cancel()
	if closeErr != nil {
		log.Warnf("%v", closeErr)
	}

	log.Infof("Application shutdown complete")
	if appErr != nil {
		return appErr
	}
	return closeErr
}

// waitForCleanup даёт фоновому удалению брошенных изображений ограниченное время.
func (a *App) waitForCleanup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cleanupWaitLimit)
	defer cancel()

	if err := a.imagesInfra.WaitForCleanup(ctx); err != nil {
		a.logger.Warnf("MinIO cleanup did not finish before shutdown, some orphan images may remain")
		return err
	}

	a.logger.Infof("MinIO cleanup completed")
	return nil
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
