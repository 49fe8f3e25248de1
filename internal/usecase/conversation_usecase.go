package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
)

// ConversationUseCase исполняет автоматы из пакета conversation: загружает сессию, применяет ввод,
// выполняет эффекты и сохраняет результат.
type ConversationUseCase struct {
	sessions      SessionRepository
	catalog       CatalogUC
	orders        OrderUC
	images        ImagesInfra
	shopAddresses map[domain.Blockchain]string
	logger        logger.Logger
	now           func() time.Time
}

func NewConversationUC(
	sessions SessionRepository,
	catalog CatalogUC,
	orders OrderUC,
	images ImagesInfra,
	shopAddresses map[domain.Blockchain]string,
	logger logger.Logger,
) *ConversationUseCase {
	return &ConversationUseCase{
		sessions:      sessions,
		catalog:       catalog,
		orders:        orders,
		images:        images,
		shopAddresses: shopAddresses,
		logger:        logger,
		now:           time.Now,
	}
}

// StartAddProduct начинает диалог создания товара. Изображения из брошенного черновика удаляются.
func (c *ConversationUseCase) StartAddProduct(ctx context.Context, admin domain.Admin) (*Reply, error) {
	const op = "ConversationUseCase.StartAddProduct"

	if !admin.Valid() {
		return nil, e.Wrap(op, e.ErrNotAdmin)
	}

	prev, err := c.sessions.Get(ctx, admin.ID(), conversation.FlowProduct)
	switch {
	case err == nil:
		c.cleanupDraftImages(prev)
	case !errors.Is(err, e.ErrNoActiveFlow):
		return nil, e.Wrap(op, err)
	}

	session, effects := conversation.StartProduct(admin.ID(), c.now())
	if err := c.sessions.Save(ctx, session); err != nil {
		return nil, e.Wrap(op, err)
	}

	return c.collectReply(session.Kind, effects), nil
}

// SelectProduct — нажатие "Купить". Начинает новый заказ и ждёт выбора сети.
// Незавершённый черновик товара при этом сбрасывается вместе с загруженными изображениями.
func (c *ConversationUseCase) SelectProduct(ctx context.Context, user User, productID int64) (*Reply, error) {
	const op = "ConversationUseCase.SelectProduct"

	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !product.IsAvailable {
		return nil, e.Wrap(op, e.ErrProductUnavailable)
	}

	if err := c.dropProductDraft(ctx, user.ID); err != nil {
		return nil, e.Wrap(op, err)
	}

	session := conversation.SelectProduct(user.ID, user.Username, productID, c.now())
	if err := c.sessions.Save(ctx, session); err != nil {
		return nil, e.Wrap(op, err)
	}

	return &Reply{Flow: conversation.FlowOrder, Product: product, Await: AwaitChain}, nil
}

func (c *ConversationUseCase) SelectBlockchain(ctx context.Context, user User, chain domain.Blockchain) (*Reply, error) {
	const op = "ConversationUseCase.SelectBlockchain"

	session, err := c.sessions.Get(ctx, user.ID, conversation.FlowOrder)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	next, err := conversation.SelectBlockchain(*session, chain, c.now())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := c.sessions.Save(ctx, next); err != nil {
		return nil, e.Wrap(op, err)
	}

	return &Reply{Flow: conversation.FlowOrder, Await: AwaitToken}, nil
}

// SelectToken завершает выбор и показывает клиенту платёжные реквизиты магазина.
func (c *ConversationUseCase) SelectToken(ctx context.Context, user User, token domain.Token) (*Reply, error) {
	const op = "ConversationUseCase.SelectToken"

	session, err := c.sessions.Get(ctx, user.ID, conversation.FlowOrder)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	next, effects, err := conversation.SelectToken(*session, token, c.now())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	chain := next.Order.Blockchain
	address := c.shopAddresses[chain]
	if address == "" {
		return nil, e.Wrap(op, e.ErrUnsupportedChain)
	}

	product, err := c.catalog.GetProduct(ctx, next.Order.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !product.IsAvailable {
		return nil, e.Wrap(op, e.ErrProductUnavailable)
	}

	if err := c.sessions.Save(ctx, next); err != nil {
		return nil, e.Wrap(op, err)
	}

	reply := c.collectReply(next.Kind, effects)
	reply.Product = product
	reply.Instructions = &PaymentInstructions{
		ProductName: product.Name,
		Amount:      product.Price,
		Token:       next.Order.Token,
		Blockchain:  chain,
		ShopAddress: address,
	}
	return reply, nil
}

func (c *ConversationUseCase) HandleText(ctx context.Context, user User, text string) (*Reply, error) {
	const op = "ConversationUseCase.HandleText"

	session, err := c.activeSession(ctx, user.ID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	reply, err := c.advance(ctx, *session, conversation.TextInput(text))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return reply, nil
}

// HandleImage сохраняет изображение в хранилище только если текущий шаг ждёт изображение.
func (c *ConversationUseCase) HandleImage(ctx context.Context, user User, image *ImageUpload) (*Reply, error) {
	const op = "ConversationUseCase.HandleImage"

	session, err := c.activeSession(ctx, user.ID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if session.Expects() != conversation.InputImage || image == nil || len(image.Data) == 0 {
		reply, err := c.advance(ctx, *session, conversation.Input{Kind: conversation.InputImage})
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		return reply, nil
	}

	ref, err := c.images.UploadImage(ctx, NewUploadImageReq(user.ID, *image))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	reply, err := c.advance(ctx, *session, conversation.ImageInput(ref))
	if err != nil || reply.Rejected != nil {
		c.images.CleanupImages([]domain.ImageRef{ref})
	}
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return reply, nil
}

func (c *ConversationUseCase) activeSession(ctx context.Context, userID int64) (*conversation.Session, error) {
	kind, err := c.sessions.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.sessions.Get(ctx, userID, kind)
}

// advance делает один ход автомата. Если сохранение черновика не удалось, сессия остаётся
// на прежнем шаге и пользователь может повторить ввод.
func (c *ConversationUseCase) advance(ctx context.Context, session conversation.Session, in conversation.Input) (*Reply, error) {
	next, effects, err := conversation.Advance(session, in, c.now())
	if err != nil {
		return nil, err
	}

	reply := c.collectReply(session.Kind, effects)

	for _, effect := range effects {
		switch ef := effect.(type) {
		case conversation.CommitProduct:
			product, err := c.catalog.CreateProduct(ctx, ef.Draft)
			if err != nil {
				return nil, err
			}
			reply.Product = product

		case conversation.CommitOrder:
			order, err := c.orders.PlaceOrder(ctx, ef.Draft)
			if errors.Is(err, e.ErrProductUnavailable) || errors.Is(err, e.ErrProductNotFound) {
				// повторять бессмысленно, черновик сбрасывается
				if delErr := c.sessions.Delete(ctx, session.UserID, session.Kind); delErr != nil {
					c.logger.Warnf("Failed to drop order session: %v", delErr)
				}
				return nil, err
			}
			if err != nil {
				return nil, err
			}
			reply.Order = order
		}
	}

	if next.Done() {
		if err := c.sessions.Delete(ctx, next.UserID, next.Kind); err != nil {
			c.logger.Warnf("Failed to delete finished session. user_id: %d, kind: %s, error: %v", next.UserID, next.Kind, err)
		}
		return reply, nil
	}

	if err := c.sessions.Save(ctx, next); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *ConversationUseCase) collectReply(kind conversation.FlowKind, effects []conversation.Effect) *Reply {
	reply := &Reply{Flow: kind}
	for _, effect := range effects {
		switch ef := effect.(type) {
		case conversation.Prompt:
			reply.Prompt = ef.Step
		case conversation.Reject:
			reply.Prompt = ef.Step
			reply.Rejected = ef.Reason
		}
	}
	return reply
}

// dropProductDraft удаляет черновик товара, если он есть.
func (c *ConversationUseCase) dropProductDraft(ctx context.Context, userID int64) error {
	draft, err := c.sessions.Get(ctx, userID, conversation.FlowProduct)
	switch {
	case errors.Is(err, e.ErrNoActiveFlow):
		return nil
	case err != nil:
		return err
	}

	if err := c.sessions.Delete(ctx, userID, conversation.FlowProduct); err != nil {
		return err
	}
	c.cleanupDraftImages(draft)
	return nil
}

func (c *ConversationUseCase) cleanupDraftImages(s *conversation.Session) {
	if s == nil || s.Product == nil {
		return
	}

	var refs []domain.ImageRef
	for _, ref := range []domain.ImageRef{s.Product.Image1, s.Product.Image2} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) > 0 {
		c.logger.Warnf("Cleaning up images of abandoned product draft. user_id: %d, count: %d", s.UserID, len(refs))
		c.images.CleanupImages(refs)
	}
}
