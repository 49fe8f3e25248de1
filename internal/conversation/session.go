// Package conversation описывает многошаговые диалоги бота как явные конечные автоматы.
// Каждый ход — чистая функция (сессия, ввод) -> (новая сессия, эффекты).
// Хранение сессий и исполнение эффектов остаются на стороне usecase.
package conversation

import (
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// FlowKind — тип диалога. Сессия хранится по ключу (пользователь, тип диалога).
type FlowKind string

const (
	FlowProduct FlowKind = "product"
	FlowOrder   FlowKind = "order"
)

// Step — текущее состояние автомата.
type Step string

const (
	// Создание товара
	StepName        Step = "name"
	StepDescription Step = "description"
	StepPrice       Step = "price"
	StepImage1      Step = "image_1"
	StepImage2      Step = "image_2"
	StepCoordinates Step = "coordinates"

	// Оформление заказа
	StepSelecting       Step = "selecting"
	StepCustomerAddress Step = "customer_address"
	StepTransactionHash Step = "transaction_hash"

	StepDone Step = "done"
)

// InputKind — тип пользовательского ввода за один ход.
type InputKind int

const (
	InputText InputKind = iota + 1
	InputImage
)

// Input — один ход пользователя. Изображение к этому моменту уже сохранено и передаётся ссылкой.
type Input struct {
	Kind  InputKind
	Text  string
	Image domain.ImageRef
}

func TextInput(text string) Input {
	return Input{Kind: InputText, Text: text}
}

func ImageInput(ref domain.ImageRef) Input {
	return Input{Kind: InputImage, Image: ref}
}

// ProductFields — поля товара, накопленные в диалоге.
type ProductFields struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image1      domain.ImageRef `json:"image_1,omitempty"`
	Image2      domain.ImageRef `json:"image_2,omitempty"`
	Coordinates string          `json:"coordinates,omitempty"`
}

// OrderFields — выбор клиента и платёжные данные заказа.
type OrderFields struct {
	ProductID       int64             `json:"product_id,omitempty"`
	Blockchain      domain.Blockchain `json:"blockchain,omitempty"`
	Token           domain.Token      `json:"token,omitempty"`
	CustomerAddress string            `json:"customer_address,omitempty"`
	TransactionHash *string           `json:"transaction_hash,omitempty"`
}

// Session — состояние одного диалога одного пользователя.
// Ровно одно из полей Product/Order заполнено в зависимости от Kind.
type Session struct {
	Kind      FlowKind       `json:"kind"`
	Step      Step           `json:"step"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username,omitempty"`
	Product   *ProductFields `json:"product,omitempty"`
	Order     *OrderFields   `json:"order,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Done сообщает, что диалог завершён и сессию можно удалить.
func (s Session) Done() bool {
	return s.Step == StepDone
}

// Expects возвращает тип ввода, который ждёт текущий шаг. Ноль — ввод не ожидается.
func (s Session) Expects() InputKind {
	switch s.Step {
	case StepImage1, StepImage2:
		return InputImage
	case StepName, StepDescription, StepPrice, StepCoordinates, StepCustomerAddress, StepTransactionHash:
		return InputText
	default:
		return 0
	}
}

// Effect — действие, которое должен выполнить вызывающий код после хода.
type Effect interface {
	isEffect()
}

// Prompt — попросить пользователя ввести данные для шага.
type Prompt struct {
	Step Step
}

// Reject — ввод отклонён, шаг не изменился, данные сохранены.
type Reject struct {
	Step   Step
	Reason error
}

// CommitProduct — черновик товара заполнен, его нужно сохранить в каталоге.
type CommitProduct struct {
	Draft domain.ProductDraft
}

// CommitOrder — черновик заказа заполнен, его нужно сохранить со статусом pending.
type CommitOrder struct {
	Draft domain.OrderDraft
}

func (Prompt) isEffect()        {}
func (Reject) isEffect()        {}
func (CommitProduct) isEffect() {}
func (CommitOrder) isEffect()   {}

// Advance применяет ввод к сессии. Ошибка возвращается только когда сессия не может принимать ввод;
// ошибки валидации оформляются эффектом Reject.
func Advance(s Session, in Input, now time.Time) (Session, []Effect, error) {
	var (
		next    Session
		effects []Effect
		err     error
	)

	switch s.Kind {
	case FlowProduct:
		next, effects, err = advanceProduct(s, in)
	case FlowOrder:
		next, effects, err = advanceOrder(s, in)
	default:
		return s, nil, errUnknownFlow
	}
	if err != nil {
		return s, nil, err
	}

	next.UpdatedAt = now
	return next, effects, nil
}

func reject(s Session, reason error) (Session, []Effect, error) {
	return s, []Effect{Reject{Step: s.Step, Reason: reason}}, nil
}
