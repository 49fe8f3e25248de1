package converter

import (
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductConverter interface {
	ToRedisModel(entity *domain.Product) *ProductRedisModel
	ToEntity(model *ProductRedisModel) (*domain.Product, error)
	ToArrRedisModel(entities []domain.Product) []ProductRedisModel
	ToArrEntity(models []ProductRedisModel) ([]domain.Product, error)
}

type ProductConv struct{}

func (ProductConv) ToRedisModel(entity *domain.Product) *ProductRedisModel {
	return &ProductRedisModel{
		ID:          entity.ID,
		Name:        entity.Name,
		Description: entity.Description,
		Price:       entity.Price.String(),
		Image1:      string(entity.Image1),
		Image2:      string(entity.Image2),
		Coordinates: entity.Coordinates,
		CreatedAt:   entity.CreatedAt,
	}
}

// ToEntity восстанавливает товар. В кэше лежат только товары в продаже.
func (ProductConv) ToEntity(model *ProductRedisModel) (*domain.Product, error) {
	price, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Price:       price,
		Image1:      domain.ImageRef(model.Image1),
		Image2:      domain.ImageRef(model.Image2),
		Coordinates: model.Coordinates,
		IsAvailable: true,
		CreatedAt:   model.CreatedAt,
	}, nil
}

func (c ProductConv) ToArrRedisModel(entities []domain.Product) []ProductRedisModel {
	result := make([]ProductRedisModel, 0, len(entities))
	for i := range entities {
		result = append(result, *c.ToRedisModel(&entities[i]))
	}
	return result
}

func (c ProductConv) ToArrEntity(models []ProductRedisModel) ([]domain.Product, error) {
	result := make([]domain.Product, 0, len(models))
	for i := range models {
		product, err := c.ToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *product)
	}
	return result, nil
}
