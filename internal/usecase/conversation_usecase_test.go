package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpeg = &ImageUpload{Data: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg"}

// addProduct проходит диалог создания товара от имени админа.
func addProduct(t *testing.T, env *testEnv, price string) *domain.Product {
	t.Helper()
	ctx := context.Background()
	admin := User{ID: adminA}

	reply, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)
	require.Equal(t, conversation.StepName, reply.Prompt)

	for _, text := range []string{"Item", "A fine item", price} {
		reply, err = env.conv.HandleText(ctx, admin, text)
		require.NoError(t, err)
		require.NoError(t, reply.Rejected)
	}
	require.Equal(t, conversation.StepImage1, reply.Prompt)

	for range 2 {
		reply, err = env.conv.HandleImage(ctx, admin, jpeg)
		require.NoError(t, err)
		require.NoError(t, reply.Rejected)
	}
	require.Equal(t, conversation.StepCoordinates, reply.Prompt)

	reply, err = env.conv.HandleText(ctx, admin, "1,2")
	require.NoError(t, err)
	require.NotNil(t, reply.Product)
	return reply.Product
}

// placeOrder проходит выбор и диалог оплаты от имени клиента.
func placeOrder(t *testing.T, env *testEnv, productID int64, hash string) *domain.Order {
	t.Helper()
	ctx := context.Background()
	user := User{ID: customer, Username: "buyer"}

	reply, err := env.conv.SelectProduct(ctx, user, productID)
	require.NoError(t, err)
	require.Equal(t, AwaitChain, reply.Await)

	reply, err = env.conv.SelectBlockchain(ctx, user, domain.Polygon)
	require.NoError(t, err)
	require.Equal(t, AwaitToken, reply.Await)

	reply, err = env.conv.SelectToken(ctx, user, domain.USDT)
	require.NoError(t, err)
	require.Equal(t, conversation.StepCustomerAddress, reply.Prompt)
	require.NotNil(t, reply.Instructions)
	assert.Equal(t, "0xshop-polygon", reply.Instructions.ShopAddress)

	reply, err = env.conv.HandleText(ctx, user, "addrX")
	require.NoError(t, err)
	require.Equal(t, conversation.StepTransactionHash, reply.Prompt)

	reply, err = env.conv.HandleText(ctx, user, hash)
	require.NoError(t, err)
	require.NotNil(t, reply.Order)
	return reply.Order
}

func TestConversation_AddProduct(t *testing.T) {
	env := setupTestEnv(t)

	product := addProduct(t, env, "10")

	assert.Equal(t, "Item", product.Name)
	assert.Equal(t, "A fine item", product.Description)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.ImageRef("products/100/img-1"), product.Image1)
	assert.Equal(t, domain.ImageRef("products/100/img-2"), product.Image2)
	assert.Equal(t, "1,2", product.Coordinates)
	assert.True(t, product.IsAvailable)

	_, err := env.sessions.Active(context.Background(), adminA)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
	assert.Len(t, env.store.events(EventProductCreated), 1)
	assert.Equal(t, 1, env.cache.invalidated)
}

func TestConversation_InvalidPriceKeepsFields(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := User{ID: adminA}

	_, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)
	_, err = env.conv.HandleText(ctx, admin, "Item")
	require.NoError(t, err)
	_, err = env.conv.HandleText(ctx, admin, "Desc")
	require.NoError(t, err)

	for _, bad := range []string{"ten", "-1", "0"} {
		reply, err := env.conv.HandleText(ctx, admin, bad)
		require.NoError(t, err)
		assert.Error(t, reply.Rejected, bad)
		assert.Equal(t, conversation.StepPrice, reply.Prompt)
	}

	s, err := env.sessions.Get(ctx, adminA, conversation.FlowProduct)
	require.NoError(t, err)
	assert.Equal(t, conversation.StepPrice, s.Step)
	assert.Equal(t, "Item", s.Product.Name)
	assert.Equal(t, "Desc", s.Product.Description)
}

func TestConversation_TextOnImageStepDoesNotUpload(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := User{ID: adminA}

	_, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)
	for _, text := range []string{"Item", "Desc", "5"} {
		_, err = env.conv.HandleText(ctx, admin, text)
		require.NoError(t, err)
	}

	reply, err := env.conv.HandleText(ctx, admin, "not an image")
	require.NoError(t, err)
	assert.ErrorIs(t, reply.Rejected, e.ErrImageExpected)
	assert.Equal(t, conversation.StepImage1, reply.Prompt)

	reply, err = env.conv.HandleImage(ctx, User{ID: adminA}, &ImageUpload{})
	require.NoError(t, err)
	assert.ErrorIs(t, reply.Rejected, e.ErrImageExpected)
	assert.Zero(t, env.images.uploaded)
}

func TestConversation_ImageOnTextStepIsRejected(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)

	reply, err := env.conv.HandleImage(ctx, User{ID: adminA}, jpeg)
	require.NoError(t, err)
	assert.ErrorIs(t, reply.Rejected, e.ErrTextExpected)
	assert.Zero(t, env.images.uploaded)
}

func TestConversation_RestartCleansAbandonedImages(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := User{ID: adminA}

	_, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)
	for _, text := range []string{"Item", "Desc", "5"} {
		_, err = env.conv.HandleText(ctx, admin, text)
		require.NoError(t, err)
	}
	_, err = env.conv.HandleImage(ctx, admin, jpeg)
	require.NoError(t, err)

	reply, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)
	assert.Equal(t, conversation.StepName, reply.Prompt)
	assert.Equal(t, []domain.ImageRef{"products/100/img-1"}, env.images.cleaned)
}

func TestConversation_BuyDropsProductDraft(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	product := addProduct(t, env, "10")
	admin := User{ID: adminA}

	_, err := env.conv.StartAddProduct(ctx, env.admin(t, adminA))
	require.NoError(t, err)
	for _, text := range []string{"Other", "Desc", "5"} {
		_, err = env.conv.HandleText(ctx, admin, text)
		require.NoError(t, err)
	}
	_, err = env.conv.HandleImage(ctx, admin, jpeg)
	require.NoError(t, err)
	require.Empty(t, env.images.cleaned)

	reply, err := env.conv.SelectProduct(ctx, admin, product.ID)
	require.NoError(t, err)
	assert.Equal(t, AwaitChain, reply.Await)
	assert.Equal(t, []domain.ImageRef{"products/100/img-3"}, env.images.cleaned)

	_, err = env.sessions.Get(ctx, adminA, conversation.FlowProduct)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)

	kind, err := env.sessions.Active(ctx, adminA)
	require.NoError(t, err)
	assert.Equal(t, conversation.FlowOrder, kind)
}

func TestConversation_StartAddProductRequiresAdmin(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.conv.StartAddProduct(context.Background(), domain.Admin{})
	assert.ErrorIs(t, err, e.ErrNotAdmin)
}

func TestConversation_NoActiveFlow(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.conv.HandleText(context.Background(), User{ID: customer}, "hello")
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
}

func TestConversation_PlaceOrderSkipHash(t *testing.T) {
	env := setupTestEnv(t)
	product := addProduct(t, env, "10")

	order := placeOrder(t, env, product.ID, "SKIP")

	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Nil(t, order.TransactionHash)
	assert.Equal(t, "addrX", order.CustomerAddress)
	assert.Equal(t, domain.USDT, order.Token)
	assert.Equal(t, domain.Polygon, order.Blockchain)
	assert.Equal(t, "buyer", order.CustomerUsername)

	for _, admin := range []int64{adminA, adminB} {
		msgs := env.notifier.to(admin)
		require.Len(t, msgs, 1)
		assert.Equal(t, sentReview, msgs[0].Kind)
		assert.Equal(t, order.ID, msgs[0].OrderID)
		assert.Contains(t, msgs[0].Text, "Transaction Hash: Not provided")
	}

	_, err := env.sessions.Active(context.Background(), customer)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)
}

func TestConversation_TypingBeforeSelectionIsRejected(t *testing.T) {
	env := setupTestEnv(t)
	product := addProduct(t, env, "10")
	ctx := context.Background()
	user := User{ID: customer}

	_, err := env.conv.SelectProduct(ctx, user, product.ID)
	require.NoError(t, err)

	reply, err := env.conv.HandleText(ctx, user, "addrX")
	require.NoError(t, err)
	assert.ErrorIs(t, reply.Rejected, e.ErrSelectionIncomplete)

	_, err = env.conv.SelectToken(ctx, user, domain.USDC)
	assert.ErrorIs(t, err, e.ErrSelectionIncomplete)
}

func TestConversation_SoldProductDropsDraft(t *testing.T) {
	env := setupTestEnv(t)
	product := addProduct(t, env, "10")
	ctx := context.Background()
	user := User{ID: customer}

	_, err := env.conv.SelectProduct(ctx, user, product.ID)
	require.NoError(t, err)
	_, err = env.conv.SelectBlockchain(ctx, user, domain.Solana)
	require.NoError(t, err)
	_, err = env.conv.SelectToken(ctx, user, domain.USDC)
	require.NoError(t, err)
	_, err = env.conv.HandleText(ctx, user, "addrY")
	require.NoError(t, err)

	// товар продан, пока клиент вводил данные
	require.NoError(t, (&fakeProductRepo{store: env.store}).SetAvailability(ctx, product.ID, false))

	_, err = env.conv.HandleText(ctx, user, "0xhash")
	assert.ErrorIs(t, err, e.ErrProductUnavailable)

	_, err = env.sessions.Active(ctx, customer)
	assert.ErrorIs(t, err, e.ErrNoActiveFlow)

	_, err = env.conv.SelectProduct(ctx, user, product.ID)
	assert.ErrorIs(t, err, e.ErrProductUnavailable)
}
