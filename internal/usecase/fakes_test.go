package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
)

// memStore — общее состояние фейковых репозиториев. Транзакции сериализуются через txMu
// и откатываются восстановлением снимка.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products   map[int64]domain.Product
	orders     map[int64]domain.Order
	outbox     []OutboxEvent
	nextID     int64
	orderIndex []int64
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]domain.Order),
	}
}

type snapshot struct {
	products   map[int64]domain.Product
	orders     map[int64]domain.Order
	outbox     []OutboxEvent
	orderIndex []int64
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		products:   make(map[int64]domain.Product, len(s.products)),
		orders:     make(map[int64]domain.Order, len(s.orders)),
		outbox:     append([]OutboxEvent(nil), s.outbox...),
		orderIndex: append([]int64(nil), s.orderIndex...),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.orders = snap.orders
	s.outbox = snap.outbox
	s.orderIndex = snap.orderIndex
}

func (s *memStore) events(eventType OutboxEventType) []OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []OutboxEvent
	for _, ev := range s.outbox {
		if ev.EventType == eventType {
			res = append(res, ev)
		}
	}
	return res
}

type fakeTx struct {
	store *memStore
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.store.txMu.Lock()
	defer f.store.txMu.Unlock()

	snap := f.store.snapshot()
	if err := fn(ctx); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

type fakeProductRepo struct {
	store *memStore
}

func (r *fakeProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextID++
	created := *p
	created.ID = r.store.nextID
	created.CreatedAt = time.Now()
	r.store.products[created.ID] = created
	return &created, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) ListAvailable(_ context.Context) ([]domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var res []domain.Product
	for id := int64(1); id <= r.store.nextID; id++ {
		if p, ok := r.store.products[id]; ok && p.IsAvailable {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeProductRepo) SetAvailability(_ context.Context, id int64, available bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[id]
	if !ok {
		return e.ErrProductNotFound
	}
	if !available && !p.IsAvailable {
		return e.ErrProductUnavailable
	}
	p.IsAvailable = available
	r.store.products[id] = p
	return nil
}

type fakeOrderRepo struct {
	store *memStore
}

func (r *fakeOrderRepo) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[o.ProductID]; !ok {
		return nil, e.ErrProductNotFound
	}

	r.store.nextID++
	created := *o
	created.ID = r.store.nextID
	created.CreatedAt = time.Now()
	r.store.orders[created.ID] = created
	r.store.orderIndex = append(r.store.orderIndex, created.ID)
	return &created, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[id]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	return &o, nil
}

func (r *fakeOrderRepo) SetStatus(_ context.Context, req *SetStatusReq) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[req.OrderID]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	if o.Status != req.From {
		if req.From == domain.OrderConfirmed {
			return nil, e.ErrOrderNotConfirmed
		}
		return nil, e.ErrOrderNotPending
	}

	o.Status = req.To
	if req.AdminID != nil {
		o.AdminID = req.AdminID
	}
	if req.ConfirmedAt != nil {
		o.ConfirmedAt = req.ConfirmedAt
	}
	r.store.orders[o.ID] = o
	return &o, nil
}

func (r *fakeOrderRepo) ListPending(ctx context.Context) ([]domain.OrderWithProduct, error) {
	return r.list(func(o domain.Order) bool { return o.Status == domain.OrderPending })
}

func (r *fakeOrderRepo) ListByStatusBefore(_ context.Context, status domain.OrderStatus, before time.Time) ([]domain.OrderWithProduct, error) {
	return r.list(func(o domain.Order) bool {
		at := o.CreatedAt
		if o.ConfirmedAt != nil {
			at = *o.ConfirmedAt
		}
		return o.Status == status && at.Before(before)
	})
}

func (r *fakeOrderRepo) list(match func(domain.Order) bool) ([]domain.OrderWithProduct, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var res []domain.OrderWithProduct
	for _, id := range r.store.orderIndex {
		o := r.store.orders[id]
		if match(o) {
			res = append(res, domain.OrderWithProduct{Order: o, Product: r.store.products[o.ProductID]})
		}
	}
	return res, nil
}

type fakeOutboxRepo struct {
	store *memStore
}

func (r *fakeOutboxRepo) Create(_ context.Context, ev *OutboxEvent) (*OutboxEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	created := *ev
	created.ID = int64(len(r.store.outbox) + 1)
	r.store.outbox = append(r.store.outbox, created)
	return &created, nil
}

func (r *fakeOutboxRepo) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkAsProcessed(context.Context, int64) error { return nil }

func (r *fakeOutboxRepo) ReleaseStale(context.Context, time.Duration) (int64, error) { return 0, nil }

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]conversation.Session
	active   map[int64]conversation.FlowKind
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: make(map[string]conversation.Session),
		active:   make(map[int64]conversation.FlowKind),
	}
}

func sessionKey(userID int64, kind conversation.FlowKind) string {
	return fmt.Sprintf("%d:%s", userID, kind)
}

func (f *fakeSessions) Get(_ context.Context, userID int64, kind conversation.FlowKind) (*conversation.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionKey(userID, kind)]
	if !ok {
		return nil, e.ErrNoActiveFlow
	}
	return &s, nil
}

func (f *fakeSessions) Save(_ context.Context, s conversation.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions[sessionKey(s.UserID, s.Kind)] = s
	f.active[s.UserID] = s.Kind
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, userID int64, kind conversation.FlowKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, sessionKey(userID, kind))
	if f.active[userID] == kind {
		delete(f.active, userID)
	}
	return nil
}

func (f *fakeSessions) Active(_ context.Context, userID int64) (conversation.FlowKind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind, ok := f.active[userID]
	if !ok {
		return "", e.ErrNoActiveFlow
	}
	return kind, nil
}

type fakeDecisions struct {
	mu         sync.Mutex
	intents    map[string]DecisionAction
	deliveries map[int64]bool
}

func newFakeDecisions() *fakeDecisions {
	return &fakeDecisions{
		intents:    make(map[string]DecisionAction),
		deliveries: make(map[int64]bool),
	}
}

func (f *fakeDecisions) ClaimDelivery(_ context.Context, orderID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deliveries[orderID] {
		return false, nil
	}
	f.deliveries[orderID] = true
	return true, nil
}

func (f *fakeDecisions) ReleaseDelivery(_ context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.deliveries, orderID)
	return nil
}

func (f *fakeDecisions) Put(_ context.Context, adminID, orderID int64, action DecisionAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.intents[fmt.Sprintf("%d:%d", adminID, orderID)] = action
	return nil
}

func (f *fakeDecisions) Take(_ context.Context, adminID, orderID int64) (DecisionAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fmt.Sprintf("%d:%d", adminID, orderID)
	action, ok := f.intents[key]
	if !ok {
		return "", e.ErrNoDecisionIntent
	}
	delete(f.intents, key)
	return action, nil
}

func (f *fakeDecisions) Delete(_ context.Context, adminID, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.intents, fmt.Sprintf("%d:%d", adminID, orderID))
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	products    []domain.Product
	cached      bool
	invalidated int
}

func (f *fakeCache) GetAvailable(context.Context) ([]domain.Product, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products, f.cached, nil
}

func (f *fakeCache) SetAvailable(_ context.Context, products []domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products, f.cached = products, true
	return nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products, f.cached = nil, false
	f.invalidated++
	return nil
}

type sentKind string

const (
	sentText       sentKind = "text"
	sentImage      sentKind = "image"
	sentReview     sentKind = "review"
	sentRedelivery sentKind = "redelivery"
)

type sentMessage struct {
	Kind      sentKind
	Recipient int64
	Text      string
	Image     domain.ImageRef
	OrderID   int64
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail func(sentMessage) error
	// Задержка каждой отправки текста; задаётся до запуска горутин.
	textDelay time.Duration
}

func (f *fakeNotifier) record(m sentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(m); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeNotifier) SendText(_ context.Context, recipient int64, text string) error {
	if f.textDelay > 0 {
		time.Sleep(f.textDelay)
	}
	return f.record(sentMessage{Kind: sentText, Recipient: recipient, Text: text})
}

func (f *fakeNotifier) SendImage(_ context.Context, recipient int64, image domain.ImageRef, caption string) error {
	return f.record(sentMessage{Kind: sentImage, Recipient: recipient, Image: image, Text: caption})
}

func (f *fakeNotifier) SendReviewRequest(_ context.Context, recipient int64, orderID int64, text string) error {
	return f.record(sentMessage{Kind: sentReview, Recipient: recipient, OrderID: orderID, Text: text})
}

func (f *fakeNotifier) SendRedeliveryRequest(_ context.Context, recipient int64, orderID int64, text string) error {
	return f.record(sentMessage{Kind: sentRedelivery, Recipient: recipient, OrderID: orderID, Text: text})
}

func (f *fakeNotifier) to(recipient int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res []sentMessage
	for _, m := range f.sent {
		if m.Recipient == recipient {
			res = append(res, m)
		}
	}
	return res
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type fakeImages struct {
	mu       sync.Mutex
	uploaded int
	cleaned  []domain.ImageRef
}

func (f *fakeImages) UploadImage(_ context.Context, req *UploadImageReq) (domain.ImageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploaded++
	return domain.ImageRef(fmt.Sprintf("products/%d/img-%d", req.OwnerID, f.uploaded)), nil
}

func (f *fakeImages) CleanupImages(refs []domain.ImageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, refs...)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	adminA   int64 = 100
	adminB   int64 = 101
	customer int64 = 500
)

type testEnv struct {
	store     *memStore
	sessions  *fakeSessions
	decisions *fakeDecisions
	cache     *fakeCache
	notifier  *fakeNotifier
	images    *fakeImages
	admins    domain.AdminSet

	catalog *CatalogUseCase
	orders  *OrderUseCase
	conv    *ConversationUseCase
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	env := &testEnv{
		store:     store,
		sessions:  newFakeSessions(),
		decisions: newFakeDecisions(),
		cache:     &fakeCache{},
		notifier:  &fakeNotifier{},
		images:    &fakeImages{},
		admins:    domain.NewAdminSet(adminA, adminB),
	}

	log := logger.NewNopLogger()
	tx := &fakeTx{store: store}
	products := &fakeProductRepo{store: store}
	orders := &fakeOrderRepo{store: store}
	outbox := &fakeOutboxRepo{store: store}

	env.catalog = NewCatalogUC(products, outbox, env.cache, tx, log)
	env.orders = NewOrderUC(products, orders, outbox, env.decisions, env.cache, tx, env.notifier, env.admins, log)
	env.conv = NewConversationUC(env.sessions, env.catalog, env.orders, env.images, map[domain.Blockchain]string{
		domain.Polygon: "0xshop-polygon",
		domain.Solana:  "shop-solana",
		domain.BSC:     "0xshop-bsc",
	}, log)

	return env
}

func (env *testEnv) admin(t *testing.T, id int64) domain.Admin {
	t.Helper()

	admin, err := env.admins.Authorize(id)
	if err != nil {
		t.Fatalf("authorize admin %d: %v", id, err)
	}
	return admin
}
