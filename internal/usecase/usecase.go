package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
)

type CatalogUC interface {
	ListAvailable(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error)
}

type OrderUC interface {
	PlaceOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error)
	RequestDecision(ctx context.Context, admin domain.Admin, orderID int64, action DecisionAction) (*domain.OrderWithProduct, error)
	CancelDecision(ctx context.Context, admin domain.Admin, orderID int64, action DecisionAction) error
	Confirm(ctx context.Context, admin domain.Admin, orderID int64) (*DeliveryRes, error)
	Reject(ctx context.Context, admin domain.Admin, orderID int64) (*domain.Order, error)
	Redeliver(ctx context.Context, admin domain.Admin, orderID int64) (*DeliveryRes, error)
	ListPending(ctx context.Context, admin domain.Admin) ([]domain.OrderWithProduct, error)
	ListStuckDeliveries(ctx context.Context, olderThan time.Duration) ([]domain.OrderWithProduct, error)
	NotifyStuckDeliveries(ctx context.Context, olderThan time.Duration) error
}

type ConversationUC interface {
	StartAddProduct(ctx context.Context, admin domain.Admin) (*Reply, error)
	SelectProduct(ctx context.Context, user User, productID int64) (*Reply, error)
	SelectBlockchain(ctx context.Context, user User, chain domain.Blockchain) (*Reply, error)
	SelectToken(ctx context.Context, user User, token domain.Token) (*Reply, error)
	HandleText(ctx context.Context, user User, text string) (*Reply, error)
	HandleImage(ctx context.Context, user User, image *ImageUpload) (*Reply, error)
}
