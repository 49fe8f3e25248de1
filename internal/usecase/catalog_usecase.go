package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
)

// CatalogUseCase управляет каталогом товаров.
type CatalogUseCase struct {
	productRepo ProductRepository
	outboxRepo  OutboxRepository
	cacheRepo   CatalogCacheRepository
	tx          Transactor
	logger      logger.Logger
	now         func() time.Time
}

func NewCatalogUC(
	productRepo ProductRepository,
	outboxRepo OutboxRepository,
	cacheRepo CatalogCacheRepository,
	tx Transactor,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		cacheRepo:   cacheRepo,
		tx:          tx,
		logger:      logger,
		now:         time.Now,
	}
}

// ListAvailable возвращает товары в продаже. Сначала смотрит в кэш, при промахе или ошибке кэша идёт в БД.
func (c *CatalogUseCase) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	const op = "CatalogUseCase.ListAvailable"

	cached, ok, err := c.cacheRepo.GetAvailable(ctx)
	if err != nil {
		c.logger.Warnf("Failed to read catalog cache: %v", e.Wrap(op, err))
	} else if ok {
		return cached, nil
	}

	products, err := c.productRepo.ListAvailable(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := c.cacheRepo.SetAvailable(ctx, products); err != nil {
		c.logger.Warnf("Failed to cache catalog: %v", e.Wrap(op, err))
	}

	return products, nil
}

func (c *CatalogUseCase) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "CatalogUseCase.GetProduct"

	product, err := c.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return product, nil
}

// CreateProduct сохраняет заполненный черновик вместе с событием product.created.
func (c *CatalogUseCase) CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error) {
	const op = "CatalogUseCase.CreateProduct"

	if !draft.Complete() {
		return nil, e.Wrap(op, e.ErrSelectionIncomplete)
	}

	var created *domain.Product
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		product, err := c.productRepo.Create(ctx, domain.NewProduct(draft))
		if err != nil {
			return err
		}

		event, err := productCreatedEvent(product, c.now())
		if err != nil {
			return err
		}
		if _, err := c.outboxRepo.Create(ctx, event); err != nil {
			return err
		}

		created = product
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := c.cacheRepo.Invalidate(ctx); err != nil {
		c.logger.Warnf("Failed to invalidate catalog cache: %v", e.Wrap(op, err))
	}

	c.logger.Infof("Product created. product_id: %d, name: %s", created.ID, created.Name)
	return created, nil
}
