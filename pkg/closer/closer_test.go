package closer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloser_ClosesInReverseOrder(t *testing.T) {
	c := NewCloser(0)

	var order []string
	for _, name := range []string{"db", "redis", "bot"} {
		c.AddSimple(name, func() { order = append(order, name) })
	}

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"bot", "redis", "db"}, order)
}

func TestCloser_CollectsErrors(t *testing.T) {
	c := NewCloser(0)
	c.Add("kafka", func(context.Context) error { return errors.New("broker down") })
	c.AddSimple("ok", func() {})

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker down")
}

func TestCloser_CloseRunsOnce(t *testing.T) {
	c := NewCloser(0)
	calls := 0
	c.AddSimple("res", func() { calls++ })

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestCloser_ForcesRemainingOnTimeout(t *testing.T) {
	c := NewCloser(50 * time.Millisecond)

	var (
		mu     sync.Mutex
		closed []string
	)
	mark := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		closed = append(closed, name)
	}

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	var calls atomic.Int32
	c.AddSimple("first", func() { mark("first") })
	c.Add("stuck", func(context.Context) error {
		// Первый вызов зависает, повторный (принудительный) сразу отдаёт ошибку.
		if calls.Add(1) == 1 {
			<-block
			return nil
		}
		return errors.New("still busy")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted")
	assert.Contains(t, err.Error(), "[FORCED] stuck: still busy")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first"}, closed)
}
