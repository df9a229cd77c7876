package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

type company struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func TestMemoize_CachesResult(t *testing.T) {
	store := &memStore{data: map[string][]byte{}}
	calls := 0
	fn := func() (company, error) {
		calls++
		return company{Name: "Acme", URL: "/company/ACME/"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Memoize(context.Background(), store, "search:acme", time.Hour, fn)
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Name)
	}
	assert.Equal(t, 1, calls)
}

func TestMemoize_DoesNotCacheErrors(t *testing.T) {
	store := &memStore{data: map[string][]byte{}}
	boom := errors.New("boom")

	_, err := Memoize(context.Background(), store, "k", time.Hour, func() (company, error) {
		return company{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.data)
}

func TestMemoize_NilStore(t *testing.T) {
	calls := 0
	fn := func() (int, error) { calls++; return 42, nil }

	for i := 0; i < 2; i++ {
		v, err := Memoize[int](context.Background(), nil, "k", time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 2, calls)
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedis(addr, "", 0, "ratio_screener_test:")
	defer r.Close()
	require.NoError(t, r.Ping(ctx))

	r.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := r.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestFile_RoundTripAndExpiry(t *testing.T) {
	fc, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fc.now = func() time.Time { return now }

	fc.Set(ctx, "search:tcs", []byte(`{"name":"TCS"}`), time.Hour)
	got, ok := fc.Get(ctx, "search:tcs")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"TCS"}`, string(got))

	_, ok = fc.Get(ctx, "search:infy")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = fc.Get(ctx, "search:tcs")
	assert.False(t, ok, "expired entries are dropped")
}

func TestFile_WithMemoize(t *testing.T) {
	fc, err := NewFile(t.TempDir())
	require.NoError(t, err)

	calls := 0
	fn := func() (company, error) {
		calls++
		return company{Name: "Infosys", URL: "/company/INFY/"}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := Memoize(context.Background(), fc, "search:infy", 0, fn)
		require.NoError(t, err)
		assert.Equal(t, "/company/INFY/", got.URL)
	}
	assert.Equal(t, 1, calls)
}
