package usecase

import (
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// newOutboxEvent кодирует поля события в protobuf Struct. Поле event_id дублируется в payload,
// чтобы потребители могли дедуплицировать повторную доставку.
func newOutboxEvent(eventType OutboxEventType, aggregateID int64, fields map[string]any, now time.Time) (*OutboxEvent, error) {
	const op = "usecase.newOutboxEvent"

	eventID := uuid.NewString()

	body := map[string]any{
		"event_id":        eventID,
		"event_type":      string(eventType),
		"event_timestamp": now.UnixNano(),
	}
	for k, v := range fields {
		body[k] = v
	}

	st, err := structpb.NewStruct(body)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	payload, err := proto.Marshal(st)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &OutboxEvent{
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   now,
	}, nil
}

func productCreatedEvent(p *domain.Product, now time.Time) (*OutboxEvent, error) {
	return newOutboxEvent(EventProductCreated, p.ID, map[string]any{
		"product_id": p.ID,
		"name":       p.Name,
		"price":      p.Price.String(),
	}, now)
}

func orderEvent(eventType OutboxEventType, o *domain.Order, now time.Time) (*OutboxEvent, error) {
	fields := map[string]any{
		"order_id":    o.ID,
		"product_id":  o.ProductID,
		"customer_id": o.CustomerID,
		"status":      string(o.Status),
		"blockchain":  string(o.Blockchain),
		"token":       string(o.Token),
	}
	if o.AdminID != nil {
		fields["admin_id"] = *o.AdminID
	}
	if o.TransactionHash != nil {
		fields["transaction_hash"] = *o.TransactionHash
	}

	return newOutboxEvent(eventType, o.ID, fields, now)
}

// DecodeEventPayload разбирает payload события обратно в карту полей.
func DecodeEventPayload(payload []byte) (map[string]any, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(payload, &st); err != nil {
		return nil, e.Wrap("usecase.DecodeEventPayload", err)
	}
	return st.AsMap(), nil
}
