package usecase

import (
	"context"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
)

// Notifier — отправка сообщений клиентам и админам. Каждая отправка — одна попытка без повторов.
type Notifier interface {
	SendText(ctx context.Context, recipient int64, text string) error
	SendImage(ctx context.Context, recipient int64, image domain.ImageRef, caption string) error
	// SendReviewRequest отправляет админу карточку заказа с кнопками "Подтвердить/Отклонить".
	SendReviewRequest(ctx context.Context, recipient int64, orderID int64, text string) error
	// SendRedeliveryRequest отправляет админу напоминание о невыданном заказе с кнопкой повторной выдачи.
	SendRedeliveryRequest(ctx context.Context, recipient int64, orderID int64, text string) error
}

type ImagesInfra interface {
	UploadImage(ctx context.Context, req *UploadImageReq) (domain.ImageRef, error)
	CleanupImages(refs []domain.ImageRef)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// Transactor выполняет fn в одной транзакции БД.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
