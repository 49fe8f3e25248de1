package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOutbox struct {
	mu        sync.Mutex
	events    []*usecase.OutboxEvent
	processed []int64
}

func (m *memOutbox) Create(_ context.Context, ev *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return ev, nil
}

func (m *memOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []*usecase.OutboxEvent
	for _, ev := range m.events {
		if ev.Status == usecase.Pending && len(res) < limit {
			ev.Status = usecase.Processing
			res = append(res, ev)
		}
	}
	return res, nil
}

func (m *memOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.ID == id {
			ev.Status = usecase.Processed
		}
	}
	m.processed = append(m.processed, id)
	return nil
}

func (m *memOutbox) ReleaseStale(context.Context, time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, ev := range m.events {
		if ev.Status == usecase.Processing {
			ev.Status = usecase.Pending
			n++
		}
	}
	return n, nil
}

type memProducer struct {
	mu   sync.Mutex
	sent []*usecase.WriteRawMessageReq
	err  error
}

func (p *memProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, req)
	return nil
}

func seedOutbox(t *testing.T, repo *memOutbox, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), &usecase.OutboxEvent{
			EventID:     "ev",
			EventType:   usecase.EventOrderCreated,
			AggregateID: int64(100 + i),
			Payload:     []byte{byte(i)},
			Status:      usecase.Pending,
		})
		require.NoError(t, err)
	}
}

func TestOutboxWorker_DrainPublishesAll(t *testing.T) {
	repo := &memOutbox{}
	producer := &memProducer{}
	seedOutbox(t, repo, batchSize+3)

	w := NewOutboxWorker(repo, logger.NewNopLogger(), producer, "outbox_pending", "")
	w.drain(context.Background())

	require.Len(t, producer.sent, batchSize+3)
	assert.Equal(t, int64(100), producer.sent[0].Key)
	assert.Equal(t, usecase.EventOrderCreated, producer.sent[0].Type)
	assert.Len(t, repo.processed, batchSize+3)
}

func TestOutboxWorker_FailedPublishStaysForRelease(t *testing.T) {
	repo := &memOutbox{}
	producer := &memProducer{err: errors.New("dial tcp: connection refused")}
	seedOutbox(t, repo, 2)

	w := NewOutboxWorker(repo, logger.NewNopLogger(), producer, "outbox_pending", "")
	w.drain(context.Background())

	assert.Empty(t, repo.processed)

	n, err := repo.ReleaseStale(context.Background(), staleProcessing)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	producer.err = nil
	w.drain(context.Background())
	assert.Len(t, producer.sent, 2)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("write: Broken pipe")))
	assert.False(t, isRetryableError(errors.New("message too large")))
	assert.False(t, isRetryableError(nil))
}
