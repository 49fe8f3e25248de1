package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

type Config struct {
	Bot    *BotCfg
	Shop   *ShopCfg
	Minio  *MinIOCfg
	Http   *HTTPConfig
	Grpc   *GRPCConfig
	Db     *PGDBCfg
	Redis  *RedisCfg
	Kafka  *KafkaCfg
	Jobs   *JobsCfg
	Admins domain.AdminSet
}

type BotCfg struct {
	Token         string
	UpdateWorkers int           // Количество воркеров, обрабатывающих апдейты (апдейты одного пользователя всегда в одном воркере)
	PollTimeout   int           // Таймаут long polling в секундах
	SendTimeout   time.Duration // Таймаут на одну отправку сообщения
}

// ShopCfg содержит адреса магазина для приёма платежей в каждой сети.
type ShopCfg struct {
	Addresses map[domain.Blockchain]string
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Название бакета с изображениями товаров
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
	MaxImageSize      int64 // Максимальный размер одного изображения в байтах
}

type HTTPConfig struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	AdminAPIToken string
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsURL string
}

type RedisCfg struct {
	Addr            string
	Password        string
	User            string
	DB              int
	MaxRetries      int
	DialTimeout     time.Duration
	Timeout         time.Duration
	ConversationTTL time.Duration // Время жизни незавершённого диалога
	DecisionTTL     time.Duration // Время жизни первого нажатия "Подтвердить/Отклонить"
	DeliveryLockTTL time.Duration // Максимальное время захвата повторной выдачи одним админом
	CatalogTTL      time.Duration
}

type JobsCfg struct {
	StuckOrdersSpec string        // cron-выражение проверки зависших доставок
	StuckOrderAge   time.Duration // С какого возраста confirmed-заказ считается зависшим
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Если рядом лежит .env, переменные из него подхватываются, но не перетирают уже заданные.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(getEnvOrDefault("ENV_FILE", ".env")); err != nil {
		log.Debugf("env file not loaded, relying on process environment: %v", err)
	}

	bot, err := loadBotCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	admins, err := loadAdmins()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	jobs, err := loadJobsCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Bot:    bot,
		Shop:   loadShopCfg(),
		Minio:  minio,
		Http:   http,
		Grpc:   loadGRPCConfig(),
		Db:     db,
		Redis:  redis,
		Kafka:  kafka,
		Jobs:   jobs,
		Admins: admins,
	}, nil
}

func loadBotCfg() (*BotCfg, error) {
	const (
		defaultWorkers     = 8
		defaultPollTimeout = 60
		defaultSendTimeout = 15 * time.Second
	)

	token := getEnv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}

	workers, err := parseIntEnv("UPDATE_WORKERS", defaultWorkers)
	if err != nil {
		return nil, e.Wrap("UPDATE_WORKERS", err)
	}
	if workers <= 0 {
		return nil, e.Wrap("UPDATE_WORKERS", e.ErrIncorrectEnvVariable)
	}

	pollTimeout, err := parseIntEnv("POLL_TIMEOUT", defaultPollTimeout)
	if err != nil {
		return nil, e.Wrap("POLL_TIMEOUT", err)
	}

	sendTimeout, err := parseDurationEnv("SEND_TIMEOUT", defaultSendTimeout)
	if err != nil {
		return nil, e.Wrap("SEND_TIMEOUT", err)
	}

	return &BotCfg{
		Token:         token,
		UpdateWorkers: workers,
		PollTimeout:   pollTimeout,
		SendTimeout:   sendTimeout,
	}, nil
}

// loadAdmins разбирает ADMIN_IDS вида "123,456".
func loadAdmins() (domain.AdminSet, error) {
	raw := getEnv("ADMIN_IDS")

	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, e.Wrap("ADMIN_IDS", e.ErrIncorrectEnvVariable)
		}
		ids = append(ids, id)
	}

	return domain.NewAdminSet(ids...), nil
}

func loadShopCfg() *ShopCfg {
	return &ShopCfg{
		Addresses: map[domain.Blockchain]string{
			domain.Polygon: getEnv("POLYGON_ADDRESS"),
			domain.Solana:  getEnv("SOLANA_ADDRESS"),
			domain.BSC:     getEnv("BSC_ADDRESS"),
		},
	}
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "order-events"
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := strings.Split(brokerStr, ",")

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL       = false
		defaultEndpoint     = "minio:9000"
		defaultBucket       = "product-images"
		defaultMaxImageSize = 10 << 20
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	maxImageSize, err := parseIntEnv("MAX_IMAGE_SIZE", defaultMaxImageSize)
	if err != nil {
		log.Errorf(err, "invalid MAX_IMAGE_SIZE")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		MaxImageSize:      int64(maxImageSize),
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:          getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		IdleTimeout:   idleTimeout,
		AdminAPIToken: getEnv("ADMIN_API_TOKEN"),
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost       = "localhost"
		defaultPort       = "5432"
		defaultSSLMode    = "disable"
		defaultMigrations = "file://db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MigrationsURL: getEnvOrDefault("MIGRATIONS_URL", defaultMigrations),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr            = "localhost:6379"
		defaultDB              = 0
		defaultMaxRetries      = 3
		defaultDialTimeout     = 5 * time.Second
		defaultReadTimeout     = 3 * time.Second
		defaultWriteTimeout    = 3 * time.Second
		defaultConversationTTL = 30 * time.Minute
		defaultDecisionTTL     = 10 * time.Minute
		defaultDeliveryLockTTL = 2 * time.Minute
		defaultCatalogTTL      = time.Minute
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	conversationTTL, err := parseDurationEnv("CONVERSATION_TTL", defaultConversationTTL)
	if err != nil {
		log.Errorf(err, "invalid CONVERSATION_TTL")
		return nil, err
	}

	decisionTTL, err := parseDurationEnv("DECISION_TTL", defaultDecisionTTL)
	if err != nil {
		log.Errorf(err, "invalid DECISION_TTL")
		return nil, err
	}

	deliveryLockTTL, err := parseDurationEnv("DELIVERY_LOCK_TTL", defaultDeliveryLockTTL)
	if err != nil {
		log.Errorf(err, "invalid DELIVERY_LOCK_TTL")
		return nil, err
	}

	catalogTTL, err := parseDurationEnv("CATALOG_TTL", defaultCatalogTTL)
	if err != nil {
		log.Errorf(err, "invalid CATALOG_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:            getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:        getEnv("REDIS_PASSWORD"),
		User:            getEnv("REDIS_USER"),
		DB:              db,
		MaxRetries:      maxRetries,
		DialTimeout:     dialTimeout,
		Timeout:         timeout,
		ConversationTTL: conversationTTL,
		DecisionTTL:     decisionTTL,
		DeliveryLockTTL: deliveryLockTTL,
		CatalogTTL:      catalogTTL,
	}, nil
}

func loadJobsCfg() (*JobsCfg, error) {
	const (
		defaultStuckSpec = "*/15 * * * *"
		defaultStuckAge  = 10 * time.Minute
	)

	age, err := parseDurationEnv("STUCK_ORDER_AGE", defaultStuckAge)
	if err != nil {
		return nil, e.Wrap("STUCK_ORDER_AGE", err)
	}

	return &JobsCfg{
		StuckOrdersSpec: getEnvOrDefault("STUCK_ORDERS_CRON", defaultStuckSpec),
		StuckOrderAge:   age,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
