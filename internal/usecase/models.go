package usecase

import (
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// User — автор входящего апдейта.
type User struct {
	ID       int64
	Username string
}

// DecisionAction — решение админа по заказу.
type DecisionAction string

const (
	DecisionConfirm DecisionAction = "confirm"
	DecisionReject  DecisionAction = "reject"
)

func (a DecisionAction) Valid() bool {
	return a == DecisionConfirm || a == DecisionReject
}

// SetStatusReq — переход статуса заказа с проверкой текущего статуса.
type SetStatusReq struct {
	OrderID     int64
	From        domain.OrderStatus
	To          domain.OrderStatus
	AdminID     *int64
	ConfirmedAt *time.Time
}

// DeliveryRes — результат подтверждения (или повторной выдачи) заказа.
type DeliveryRes struct {
	Order     *domain.Order
	Product   *domain.Product
	Delivered bool  // все четыре сообщения отправлены, заказ completed
	Err       error // причина неудачной выдачи, если Delivered == false
}

// ImageUpload — изображение, полученное от транспорта.
type ImageUpload struct {
	Data     []byte
	MimeType string
}

// UploadImageReq — запрос на сохранение изображения товара в объектном хранилище.
type UploadImageReq struct {
	OwnerID int64
	Image   ImageUpload
}

// PaymentInstructions показываются клиенту после выбора токена.
type PaymentInstructions struct {
	ProductName string
	Amount      decimal.Decimal
	Token       domain.Token
	Blockchain  domain.Blockchain
	ShopAddress string
}

// Awaiting — какой выбор кнопками ждёт диалог заказа до ввода адреса.
type Awaiting string

const (
	AwaitChain Awaiting = "blockchain"
	AwaitToken Awaiting = "token"
)

// Reply описывает, что транспорт должен показать пользователю после хода диалога.
type Reply struct {
	Flow         conversation.FlowKind
	Prompt       conversation.Step // какой ввод запросить дальше; пусто, если ничего
	Await        Awaiting
	Rejected     error             // ввод отклонён, шаг повторяется
	Product      *domain.Product   // товар сохранён в каталоге
	Order        *domain.Order     // заказ создан
	Instructions *PaymentInstructions
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	EventProductCreated      OutboxEventType = "product.created"
	EventOrderCreated        OutboxEventType = "order.created"
	EventOrderConfirmed      OutboxEventType = "order.confirmed"
	EventOrderRejected       OutboxEventType = "order.rejected"
	EventOrderCompleted      OutboxEventType = "order.completed"
	EventOrderDeliveryFailed OutboxEventType = "order.delivery_failed"
)

// OutboxEvent — событие, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	AggregateID int64 // id заказа или товара, ключ партиционирования
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type WriteRawMessageReq struct {
	Key     int64
	Type    OutboxEventType
	Payload []byte
}

// MAPPERS

func NewWriteRawMessageReq(key int64, eventType OutboxEventType, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Type:    eventType,
		Payload: payload,
	}
}

func NewUploadImageReq(ownerID int64, image ImageUpload) *UploadImageReq {
	return &UploadImageReq{
		OwnerID: ownerID,
		Image:   image,
	}
}
