package conversation

import (
	"strings"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
)

// SkipHash — ответ клиента, означающий "хеша транзакции пока нет".
const SkipHash = "skip"

// SelectProduct начинает новый заказ на товар. Любая предыдущая сессия заказа заменяется.
func SelectProduct(userID int64, username string, productID int64, now time.Time) Session {
	return Session{
		Kind:      FlowOrder,
		Step:      StepSelecting,
		UserID:    userID,
		Username:  username,
		Order:     &OrderFields{ProductID: productID},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SelectBlockchain записывает выбранную сеть. Повторный выбор перезаписывает предыдущий.
func SelectBlockchain(s Session, chain domain.Blockchain, now time.Time) (Session, error) {
	if err := checkSelectable(s); err != nil {
		return s, err
	}
	if _, ok := domain.ParseBlockchain(string(chain)); !ok {
		return s, e.ErrUnsupportedChain
	}

	fields := *s.Order
	fields.Blockchain = chain

	next := s
	next.Order = &fields
	next.UpdatedAt = now
	return next, nil
}

// SelectToken записывает токен и переводит диалог к вводу адреса клиента.
func SelectToken(s Session, token domain.Token, now time.Time) (Session, []Effect, error) {
	if err := checkSelectable(s); err != nil {
		return s, nil, err
	}
	if _, ok := domain.ParseToken(string(token)); !ok {
		return s, nil, e.ErrUnsupportedToken
	}
	if s.Order.Blockchain == "" {
		return s, nil, e.ErrSelectionIncomplete
	}

	fields := *s.Order
	fields.Token = token

	next := s
	next.Order = &fields
	next.Step = StepCustomerAddress
	next.UpdatedAt = now
	return next, []Effect{Prompt{Step: StepCustomerAddress}}, nil
}

// Выбор допустим, пока клиент не начал вводить платёжные данные (и на шаге адреса — для смены токена).
func checkSelectable(s Session) error {
	if s.Kind != FlowOrder || s.Order == nil {
		return e.ErrSelectionIncomplete
	}
	if s.Order.ProductID == 0 {
		return e.ErrSelectionIncomplete
	}
	if s.Step != StepSelecting && s.Step != StepCustomerAddress {
		return e.ErrUnexpectedInput
	}
	return nil
}

// CUSTOMER_ADDRESS -> TRANSACTION_HASH -> DONE
func advanceOrder(s Session, in Input) (Session, []Effect, error) {
	if s.Order == nil {
		return s, nil, errUnknownFlow
	}
	if s.Done() {
		return s, nil, errFinished
	}
	if s.Step == StepSelecting {
		return reject(s, e.ErrSelectionIncomplete)
	}
	if in.Kind != InputText {
		return reject(s, e.ErrTextExpected)
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return reject(s, e.ErrEmptyInput)
	}

	fields := *s.Order
	next := s
	next.Order = &fields

	switch s.Step {
	case StepCustomerAddress:
		fields.CustomerAddress = text
		next.Step = StepTransactionHash
		return next, []Effect{Prompt{Step: StepTransactionHash}}, nil

	case StepTransactionHash:
		if strings.EqualFold(text, SkipHash) {
			fields.TransactionHash = nil
		} else {
			hash := text
			fields.TransactionHash = &hash
		}
		next.Step = StepDone

		return next, []Effect{CommitOrder{Draft: domain.OrderDraft{
			ProductID:        fields.ProductID,
			CustomerID:       s.UserID,
			CustomerUsername: s.Username,
			CustomerAddress:  fields.CustomerAddress,
			Token:            fields.Token,
			Blockchain:       fields.Blockchain,
			TransactionHash:  fields.TransactionHash,
		}}}, nil

	default:
		return s, nil, errUnknownFlow
	}
}
