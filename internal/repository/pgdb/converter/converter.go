package converter

import (
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
}

// OrderConverter преобразует сущности Order между domain и моделью PostgreSQL.
type OrderConverter interface {
	ToModel(entity *domain.Order) *OrderModel
	ToEntity(model *OrderModel) *domain.Order
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type ProductConv struct{}

func (ProductConv) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}
	return &ProductModel{
		ID:          entity.ID,
		Name:        entity.Name,
		Description: entity.Description,
		Price:       entity.Price,
		Image1Key:   string(entity.Image1),
		Image2Key:   string(entity.Image2),
		Coordinates: entity.Coordinates,
		IsAvailable: entity.IsAvailable,
		CreatedAt:   entity.CreatedAt,
	}
}

func (ProductConv) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Price:       model.Price,
		Image1:      domain.ImageRef(model.Image1Key),
		Image2:      domain.ImageRef(model.Image2Key),
		Coordinates: model.Coordinates,
		IsAvailable: model.IsAvailable,
		CreatedAt:   model.CreatedAt,
	}
}

type OrderConv struct{}

func (OrderConv) ToModel(entity *domain.Order) *OrderModel {
	if entity == nil {
		return nil
	}
	return &OrderModel{
		ID:               entity.ID,
		ProductID:        entity.ProductID,
		CustomerID:       entity.CustomerID,
		CustomerUsername: entity.CustomerUsername,
		CustomerAddress:  entity.CustomerAddress,
		PaymentToken:     string(entity.Token),
		Blockchain:       string(entity.Blockchain),
		TransactionHash:  entity.TransactionHash,
		Status:           string(entity.Status),
		CreatedAt:        entity.CreatedAt,
		ConfirmedAt:      entity.ConfirmedAt,
		AdminID:          entity.AdminID,
	}
}

func (OrderConv) ToEntity(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	return &domain.Order{
		ID:               model.ID,
		ProductID:        model.ProductID,
		CustomerID:       model.CustomerID,
		CustomerUsername: model.CustomerUsername,
		CustomerAddress:  model.CustomerAddress,
		Token:            domain.Token(model.PaymentToken),
		Blockchain:       domain.Blockchain(model.Blockchain),
		TransactionHash:  model.TransactionHash,
		Status:           domain.OrderStatus(model.Status),
		CreatedAt:        model.CreatedAt,
		ConfirmedAt:      model.ConfirmedAt,
		AdminID:          model.AdminID,
	}
}

type OutboxEventConv struct{}

func (OutboxEventConv) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConv) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConv) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, model := range models {
		result = append(result, c.ToEntity(model))
	}
	return result
}
