package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар каталога вместе с цифровыми товарами, которые выдаются после оплаты.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal // Цена в USDT/USDC
	Image1      ImageRef
	Image2      ImageRef
	Coordinates string
	IsAvailable bool
	CreatedAt   time.Time
}

// ProductDraft — накопленные в диалоге поля товара, ещё не сохранённые в каталоге.
type ProductDraft struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image1      ImageRef
	Image2      ImageRef
	Coordinates string
}

func NewProduct(draft ProductDraft) *Product {
	return &Product{
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Image1:      draft.Image1,
		Image2:      draft.Image2,
		Coordinates: draft.Coordinates,
		IsAvailable: true,
	}
}

// Complete сообщает, заполнены ли все поля черновика.
func (d ProductDraft) Complete() bool {
	return d.Name != "" &&
		d.Description != "" &&
		d.Price.IsPositive() &&
		d.Image1 != "" &&
		d.Image2 != "" &&
		d.Coordinates != ""
}
