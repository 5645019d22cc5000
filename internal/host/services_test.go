package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (*Services, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s, err := NewServices(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, reg
}

func TestServices_RegisterAndCall(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()

	var got ServiceCall
	require.NoError(t, s.Register("inventory", "add_item", func(_ context.Context, call ServiceCall) (any, error) {
		got = call
		return "ok", nil
	}))
	assert.ErrorIs(t, s.Register("inventory", "add_item", nil), ErrServiceExists)
	assert.True(t, s.Has("inventory", "add_item"))
	assert.False(t, s.Has("inventory", "remove_item"))
	assert.Equal(t, []string{"inventory.add_item"}, s.List())

	resp, err := s.Call(ctx, "inventory", "add_item", map[string]any{"name": "Flour"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "inventory", got.Domain)
	assert.Equal(t, "add_item", got.Service)
	assert.Equal(t, "Flour", got.Data["name"])
	assert.NotEmpty(t, got.ContextID)

	_, err = s.Call(ctx, "inventory", "nope", nil)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestServices_NilDataBecomesEmptyMap(t *testing.T) {
	s, _ := newTestServices(t)
	require.NoError(t, s.Register("inventory", "list", func(_ context.Context, call ServiceCall) (any, error) {
		if call.Data == nil {
			return nil, errors.New("nil data")
		}
		return nil, nil
	}))
	_, err := s.Call(context.Background(), "inventory", "list", nil)
	assert.NoError(t, err)
}

func TestServices_ErrorsPassThroughAndMetrics(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	boom := errors.New("item \"Flour\" in category \"Pantry\" already exists")

	require.NoError(t, s.Register("inventory", "add_item", func(_ context.Context, call ServiceCall) (any, error) {
		if call.Data["fail"] == true {
			return nil, boom
		}
		return nil, nil
	}))

	_, err := s.Call(ctx, "inventory", "add_item", nil)
	require.NoError(t, err)
	_, err = s.Call(ctx, "inventory", "add_item", map[string]any{"fail": true})
	assert.Same(t, boom, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.calls.WithLabelValues("inventory", "add_item", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.calls.WithLabelValues("inventory", "add_item", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.duration))
}

func TestServices_CanceledContext(t *testing.T) {
	s, _ := newTestServices(t)
	called := false
	require.NoError(t, s.Register("inventory", "add_item", func(context.Context, ServiceCall) (any, error) {
		called = true
		return nil, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Call(ctx, "inventory", "add_item", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestServices_CallsAreSerialized(t *testing.T) {
	s, _ := newTestServices(t)
	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	require.NoError(t, s.Register("inventory", "slow", func(context.Context, ServiceCall) (any, error) {
		mu.Lock()
		running++
		if running > maxSeen {
			maxSeen = running
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Call(context.Background(), "inventory", "slow", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestNewServices_SharesCollectorsOnOneRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := NewServices(reg, log)
	require.NoError(t, err)
	b, err := NewServices(reg, log)
	require.NoError(t, err)
	assert.Same(t, a.calls, b.calls)

	_, err = NewServices(nil, log)
	assert.NoError(t, err)
}
