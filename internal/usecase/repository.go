package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
)

// ProductRepository — хранилище каталога.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	ListAvailable(ctx context.Context) ([]domain.Product, error)
	// SetAvailability меняет флаг только если текущее значение отличается.
	// Возвращает e.ErrProductUnavailable, если товар уже снят с продажи и запрошено false.
	SetAvailability(ctx context.Context, id int64, available bool) error
}

// OrderRepository — хранилище заказов.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// SetStatus выполняет compare-and-set по статусу: запись меняется, только если текущий статус равен req.From.
	SetStatus(ctx context.Context, req *SetStatusReq) (*domain.Order, error)
	ListPending(ctx context.Context) ([]domain.OrderWithProduct, error)
	ListByStatusBefore(ctx context.Context, status domain.OrderStatus, before time.Time) ([]domain.OrderWithProduct, error)
}

// OutboxRepository — таблица исходящих событий, пишется в одной транзакции с изменениями.
type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SessionRepository хранит черновики диалогов по ключу (пользователь, тип диалога).
type SessionRepository interface {
	Get(ctx context.Context, userID int64, kind conversation.FlowKind) (*conversation.Session, error)
	// Save сохраняет сессию и делает её тип активным для пользователя.
	Save(ctx context.Context, session conversation.Session) error
	Delete(ctx context.Context, userID int64, kind conversation.FlowKind) error
	// Active возвращает тип активного диалога или e.ErrNoActiveFlow.
	Active(ctx context.Context, userID int64) (conversation.FlowKind, error)
}

// DecisionRepository хранит первое нажатие админа (намерение) до подтверждения "Да".
type DecisionRepository interface {
	Put(ctx context.Context, adminID, orderID int64, action DecisionAction) error
	// Take атомарно забирает намерение. Возвращает e.ErrNoDecisionIntent, если его нет.
	Take(ctx context.Context, adminID, orderID int64) (DecisionAction, error)
	Delete(ctx context.Context, adminID, orderID int64) error
	// ClaimDelivery захватывает повторную выдачу заказа. false — выдачу уже ведёт другой админ.
	ClaimDelivery(ctx context.Context, orderID int64) (bool, error)
	ReleaseDelivery(ctx context.Context, orderID int64) error
}

// ImageRepository — объектное хранилище изображений товаров.
type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Get(ctx context.Context, key string) (*domain.Image, error)
	Delete(ctx context.Context, key string) error
}

// CatalogCacheRepository кэширует список доступных товаров.
type CatalogCacheRepository interface {
	GetAvailable(ctx context.Context) ([]domain.Product, bool, error)
	SetAvailable(ctx context.Context, products []domain.Product) error
	Invalidate(ctx context.Context) error
}
