package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// OrderUseCase — контроллер жизненного цикла заказа. Единственный, кто меняет статус заказа
// и доступность товара.
type OrderUseCase struct {
	productRepo  ProductRepository
	orderRepo    OrderRepository
	outboxRepo   OutboxRepository
	decisionRepo DecisionRepository
	cacheRepo    CatalogCacheRepository
	tx           Transactor
	notifier     Notifier
	admins       domain.AdminSet
	logger       logger.Logger
	now          func() time.Time
}

func NewOrderUC(
	productRepo ProductRepository,
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	decisionRepo DecisionRepository,
	cacheRepo CatalogCacheRepository,
	tx Transactor,
	notifier Notifier,
	admins domain.AdminSet,
	logger logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		outboxRepo:   outboxRepo,
		decisionRepo: decisionRepo,
		cacheRepo:    cacheRepo,
		tx:           tx,
		notifier:     notifier,
		admins:       admins,
		logger:       logger,
		now:          time.Now,
	}
}

// PlaceOrder сохраняет заказ в статусе pending и рассылает карточку всем админам.
// Ошибки рассылки только логируются: заказ уже создан.
func (o *OrderUseCase) PlaceOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	const op = "OrderUseCase.PlaceOrder"

	product, err := o.productRepo.GetByID(ctx, draft.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !product.IsAvailable {
		return nil, e.Wrap(op, e.ErrProductUnavailable)
	}

	var order *domain.Order
	err = o.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := o.orderRepo.Create(ctx, domain.NewOrder(draft))
		if err != nil {
			return err
		}

		if err := o.writeEvent(ctx, EventOrderCreated, created); err != nil {
			return err
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	o.logger.Infof("Order created. order_id: %d, product_id: %d, customer_id: %d", order.ID, order.ProductID, order.CustomerID)

	summary := OrderSummary(HeaderNewOrder, order, product)
	o.broadcast(ctx, func(ctx context.Context, adminID int64) error {
		return o.notifier.SendReviewRequest(ctx, adminID, order.ID, summary)
	})

	return order, nil
}

// RequestDecision — первое нажатие "Подтвердить/Отклонить". Ничего не меняет в заказе,
// только запоминает намерение админа до второго нажатия "Да".
func (o *OrderUseCase) RequestDecision(ctx context.Context, admin domain.Admin, orderID int64, action DecisionAction) (*domain.OrderWithProduct, error) {
	const op = "OrderUseCase.RequestDecision"

	if !admin.Valid() {
		return nil, e.Wrap(op, e.ErrNotAdmin)
	}
	if !action.Valid() {
		return nil, e.Wrap(op, e.ErrUnknownCommand)
	}

	order, err := o.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if order.Status != domain.OrderPending {
		return nil, e.Wrap(op, e.ErrOrderNotPending)
	}

	product, err := o.productRepo.GetByID(ctx, order.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := o.decisionRepo.Put(ctx, admin.ID(), orderID, action); err != nil {
		return nil, e.Wrap(op, err)
	}

	return &domain.OrderWithProduct{Order: *order, Product: *product}, nil
}

// CancelDecision — нажатие "Нет": намерение сбрасывается, заказ остаётся pending.
func (o *OrderUseCase) CancelDecision(ctx context.Context, admin domain.Admin, orderID int64, action DecisionAction) error {
	const op = "OrderUseCase.CancelDecision"

	if !admin.Valid() {
		return e.Wrap(op, e.ErrNotAdmin)
	}
	if !action.Valid() {
		return e.Wrap(op, e.ErrUnknownCommand)
	}

	if err := o.decisionRepo.Delete(ctx, admin.ID(), orderID); err != nil {
		return e.Wrap(op, err)
	}

	o.logger.Debugf("Decision cancelled. order_id: %d, admin_id: %d, action: %s", orderID, admin.ID(), action)
	return nil
}

// Confirm — второе нажатие "Да" на подтверждение. Статус pending -> confirmed и снятие товара
// с продажи пишутся в одной транзакции; при конкурентном подтверждении выигрывает ровно один вызов.
// Затем выдаются цифровые товары, и при полной выдаче заказ становится completed.
func (o *OrderUseCase) Confirm(ctx context.Context, admin domain.Admin, orderID int64) (*DeliveryRes, error) {
	const op = "OrderUseCase.Confirm"

	if !admin.Valid() {
		return nil, e.Wrap(op, e.ErrNotAdmin)
	}
	if err := o.takeIntent(ctx, admin, orderID, DecisionConfirm); err != nil {
		return nil, e.Wrap(op, err)
	}

	adminID := admin.ID()
	now := o.now()

	var (
		order   *domain.Order
		product *domain.Product
	)
	err := o.tx.WithinTx(ctx, func(ctx context.Context) error {
		confirmed, err := o.orderRepo.SetStatus(ctx, &SetStatusReq{
			OrderID:     orderID,
			From:        domain.OrderPending,
			To:          domain.OrderConfirmed,
			AdminID:     &adminID,
			ConfirmedAt: &now,
		})
		if err != nil {
			return err
		}

		if err := o.productRepo.SetAvailability(ctx, confirmed.ProductID, false); err != nil {
			return err
		}

		p, err := o.productRepo.GetByID(ctx, confirmed.ProductID)
		if err != nil {
			return err
		}

		if err := o.writeEvent(ctx, EventOrderConfirmed, confirmed); err != nil {
			return err
		}

		order, product = confirmed, p
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	o.logger.Infof("Order confirmed. order_id: %d, admin_id: %d", order.ID, adminID)

	if err := o.cacheRepo.Invalidate(ctx); err != nil {
		o.logger.Warnf("Failed to invalidate catalog cache: %v", e.Wrap(op, err))
	}

	return o.deliver(ctx, order, product), nil
}

// Reject — второе нажатие "Да" на отклонение. Клиент получает уведомление; ошибка отправки
// не влияет на статус.
func (o *OrderUseCase) Reject(ctx context.Context, admin domain.Admin, orderID int64) (*domain.Order, error) {
	const op = "OrderUseCase.Reject"

	if !admin.Valid() {
		return nil, e.Wrap(op, e.ErrNotAdmin)
	}
	if err := o.takeIntent(ctx, admin, orderID, DecisionReject); err != nil {
		return nil, e.Wrap(op, err)
	}

	adminID := admin.ID()

	var order *domain.Order
	err := o.tx.WithinTx(ctx, func(ctx context.Context) error {
		rejected, err := o.orderRepo.SetStatus(ctx, &SetStatusReq{
			OrderID: orderID,
			From:    domain.OrderPending,
			To:      domain.OrderRejected,
			AdminID: &adminID,
		})
		if err != nil {
			return err
		}

		if err := o.writeEvent(ctx, EventOrderRejected, rejected); err != nil {
			return err
		}

		order = rejected
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	o.logger.Infof("Order rejected. order_id: %d, admin_id: %d", order.ID, adminID)

	if err := o.notifier.SendText(ctx, order.CustomerID, rejectionNotice); err != nil {
		o.logger.Errorf(err, "Failed to notify customer about rejection. order_id: %d, customer_id: %d", order.ID, order.CustomerID)
	}

	return order, nil
}

// Redeliver повторяет выдачу для заказа, который остался confirmed после неудачной выдачи.
// Одновременно выдачу ведёт только один админ, остальные получают e.ErrDeliveryInProgress.
func (o *OrderUseCase) Redeliver(ctx context.Context, admin domain.Admin, orderID int64) (*DeliveryRes, error) {
	const op = "OrderUseCase.Redeliver"

	if !admin.Valid() {
		return nil, e.Wrap(op, e.ErrNotAdmin)
	}

	claimed, err := o.decisionRepo.ClaimDelivery(ctx, orderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !claimed {
		return nil, e.Wrap(op, e.ErrDeliveryInProgress)
	}
	defer func() {
		if err := o.decisionRepo.ReleaseDelivery(context.WithoutCancel(ctx), orderID); err != nil {
			o.logger.Warnf("Failed to release delivery claim. order_id: %d: %v", orderID, err)
		}
	}()

	// Статус читается после захвата: завершённую кем-то выдачу повторять нельзя.
	order, err := o.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if order.Status != domain.OrderConfirmed {
		return nil, e.Wrap(op, e.ErrOrderNotConfirmed)
	}

	product, err := o.productRepo.GetByID(ctx, order.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	o.logger.Infof("Redelivering order. order_id: %d, admin_id: %d", order.ID, admin.ID())
	return o.deliver(ctx, order, product), nil
}

func (o *OrderUseCase) ListPending(ctx context.Context, admin domain.Admin) ([]domain.OrderWithProduct, error) {
	const op = "OrderUseCase.ListPending"

	if !admin.Valid() {
		return nil, e.Wrap(op, e.ErrNotAdmin)
	}

	orders, err := o.orderRepo.ListPending(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return orders, nil
}

// ListStuckDeliveries возвращает заказы, которые остаются confirmed дольше olderThan.
func (o *OrderUseCase) ListStuckDeliveries(ctx context.Context, olderThan time.Duration) ([]domain.OrderWithProduct, error) {
	const op = "OrderUseCase.ListStuckDeliveries"

	orders, err := o.orderRepo.ListByStatusBefore(ctx, domain.OrderConfirmed, o.now().Add(-olderThan))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return orders, nil
}

// NotifyStuckDeliveries напоминает всем админам о невыданных заказах. Вызывается по расписанию.
func (o *OrderUseCase) NotifyStuckDeliveries(ctx context.Context, olderThan time.Duration) error {
	const op = "OrderUseCase.NotifyStuckDeliveries"

	stuck, err := o.ListStuckDeliveries(ctx, olderThan)
	if err != nil {
		return e.Wrap(op, err)
	}
	if len(stuck) == 0 {
		return nil
	}

	o.logger.Warnf("Found %d confirmed orders without delivery", len(stuck))

	for i := range stuck {
		item := stuck[i]
		summary := OrderSummary(HeaderStuckOrder, &item.Order, &item.Product)
		o.broadcast(ctx, func(ctx context.Context, adminID int64) error {
			return o.notifier.SendRedeliveryRequest(ctx, adminID, item.Order.ID, summary)
		})
	}

	return nil
}

// deliver отправляет клиенту текст, два изображения и координаты. Все четыре отправки выполняются
// в фиксированном порядке независимо от ошибок предыдущих.
func (o *OrderUseCase) deliver(ctx context.Context, order *domain.Order, product *domain.Product) *DeliveryRes {
	const op = "OrderUseCase.deliver"

	res := &DeliveryRes{Order: order, Product: product}
	customer := order.CustomerID

	sends := []func() error{
		func() error { return o.notifier.SendText(ctx, customer, goodsNotice(product)) },
		func() error { return o.notifier.SendImage(ctx, customer, product.Image1, imageCaption1) },
		func() error { return o.notifier.SendImage(ctx, customer, product.Image2, imageCaption2) },
		func() error { return o.notifier.SendText(ctx, customer, coordinatesNotice(product)) },
	}

	var errs []error
	for _, send := range sends {
		if err := send(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		o.logger.Errorf(err, "Goods delivery failed, order stays confirmed. order_id: %d, customer_id: %d", order.ID, customer)
		res.Err = err

		if evErr := o.tx.WithinTx(ctx, func(ctx context.Context) error {
			return o.writeEvent(ctx, EventOrderDeliveryFailed, order)
		}); evErr != nil {
			o.logger.Warnf("Failed to record delivery failure event: %v", e.Wrap(op, evErr))
		}
		return res
	}

	err := o.tx.WithinTx(ctx, func(ctx context.Context) error {
		completed, err := o.orderRepo.SetStatus(ctx, &SetStatusReq{
			OrderID: order.ID,
			From:    domain.OrderConfirmed,
			To:      domain.OrderCompleted,
		})
		if err != nil {
			return err
		}

		if err := o.writeEvent(ctx, EventOrderCompleted, completed); err != nil {
			return err
		}

		res.Order = completed
		return nil
	})
	if err != nil {
		o.logger.Errorf(err, "Goods delivered but order was not completed. order_id: %d", order.ID)
		res.Err = e.Wrap(op, err)
		return res
	}

	res.Delivered = true
	o.logger.Infof("Order completed. order_id: %d", order.ID)
	return res
}

// takeIntent забирает намерение, записанное на первом шаге. Намерение другого типа не принимается.
func (o *OrderUseCase) takeIntent(ctx context.Context, admin domain.Admin, orderID int64, want DecisionAction) error {
	action, err := o.decisionRepo.Take(ctx, admin.ID(), orderID)
	if err != nil {
		return err
	}
	if action != want {
		return e.ErrNoDecisionIntent
	}
	return nil
}

func (o *OrderUseCase) writeEvent(ctx context.Context, eventType OutboxEventType, order *domain.Order) error {
	event, err := orderEvent(eventType, order, o.now())
	if err != nil {
		return err
	}
	_, err = o.outboxRepo.Create(ctx, event)
	return err
}

// broadcast параллельно выполняет send для каждого админа. Ошибки логируются и не прерывают рассылку.
func (o *OrderUseCase) broadcast(ctx context.Context, send func(ctx context.Context, adminID int64) error) {
	var g errgroup.Group
	for _, adminID := range o.admins.IDs() {
		g.Go(func() error {
			if err := send(ctx, adminID); err != nil {
				o.logger.Errorf(err, "Could not notify admin %d", adminID)
			}
			return nil
		})
	}
	_ = g.Wait()
}
