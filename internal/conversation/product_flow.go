package conversation

import (
	"strings"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/shopspring/decimal"
)

// maxPriceDecimals — стейблкоины в поддерживаемых сетях имеют минимум 6 знаков.
const maxPriceDecimals = 6

// StartProduct начинает диалог создания товара. Предыдущая сессия того же типа перезаписывается.
func StartProduct(userID int64, now time.Time) (Session, []Effect) {
	s := Session{
		Kind:      FlowProduct,
		Step:      StepName,
		UserID:    userID,
		Product:   &ProductFields{},
		StartedAt: now,
		UpdatedAt: now,
	}

	return s, []Effect{Prompt{Step: StepName}}
}

// NAME -> DESCRIPTION -> PRICE -> IMAGE_1 -> IMAGE_2 -> COORDINATES -> DONE
func advanceProduct(s Session, in Input) (Session, []Effect, error) {
	if s.Product == nil {
		return s, nil, errUnknownFlow
	}
	if s.Done() {
		return s, nil, errFinished
	}

	// копия, чтобы не менять поля исходной сессии
	fields := *s.Product
	next := s
	next.Product = &fields

	switch s.Step {
	case StepName, StepDescription, StepPrice, StepCoordinates:
		if in.Kind != InputText {
			return reject(s, e.ErrTextExpected)
		}
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return reject(s, e.ErrEmptyInput)
		}

		switch s.Step {
		case StepName:
			fields.Name = text
			next.Step = StepDescription
		case StepDescription:
			fields.Description = text
			next.Step = StepPrice
		case StepPrice:
			price, err := ParsePrice(text)
			if err != nil {
				return reject(s, err)
			}
			fields.Price = price
			next.Step = StepImage1
		case StepCoordinates:
			fields.Coordinates = text
			next.Step = StepDone

			return next, []Effect{CommitProduct{Draft: fields.draft()}}, nil
		}

	case StepImage1, StepImage2:
		if in.Kind != InputImage || in.Image == "" {
			return reject(s, e.ErrImageExpected)
		}

		if s.Step == StepImage1 {
			fields.Image1 = in.Image
			next.Step = StepImage2
		} else {
			fields.Image2 = in.Image
			next.Step = StepCoordinates
		}

	default:
		return s, nil, errUnknownFlow
	}

	return next, []Effect{Prompt{Step: next.Step}}, nil
}

func (f ProductFields) draft() domain.ProductDraft {
	return domain.ProductDraft{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Image1:      f.Image1,
		Image2:      f.Image2,
		Coordinates: f.Coordinates,
	}
}

// ParsePrice разбирает положительную десятичную цену. Запятая допускается как разделитель.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, e.ErrInvalidPrice
	}

	if !d.IsPositive() {
		return decimal.Zero, e.ErrPriceMustBePositive
	}

	if d.Exponent() < -maxPriceDecimals {
		return decimal.Zero, e.ErrPricePrecision
	}

	return d, nil
}
