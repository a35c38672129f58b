package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCMS struct {
	hits  int32
	delay time.Duration
	paths sync.Map
}

func (f *fakeCMS) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		f.paths.Store(r.URL.RequestURI(), true)
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if r.URL.Path == "/news/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	})
}

func newTestClient(t *testing.T, f *fakeCMS, ttl time.Duration, size int) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:          srv.URL,
		APIKey:           "secret",
		AllowedEndpoints: []string{"news", "faq"},
		CacheTTL:         ttl,
		CacheSize:        size,
		Timeout:          time.Second,
	}, zerolog.Nop())
}

func TestClient_CachesIdenticalRequests(t *testing.T) {
	f := &fakeCMS{}
	c := newTestClient(t, f, time.Minute, 10)
	ctx := context.Background()

	q1 := url.Values{"limit": {"10"}, "orders": {"-publishedAt"}}
	q2 := url.Values{"orders": {"-publishedAt"}, "limit": {"10"}, "draftKey": {"ignored"}}

	_, err := c.List(ctx, "news", q1)
	require.NoError(t, err)
	body, err := c.List(ctx, "news", q2)
	require.NoError(t, err)

	assert.JSONEq(t, `{"path":"/news"}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.hits))

	_, ok := f.paths.Load("/news?limit=10&orders=-publishedAt")
	assert.True(t, ok)
}

func TestClient_ExpiresAfterTTL(t *testing.T) {
	f := &fakeCMS{}
	c := newTestClient(t, f, 50*time.Millisecond, 10)
	ctx := context.Background()

	_, err := c.Get(ctx, "faq", "abc", nil)
	require.NoError(t, err)
	time.Sleep(120 * time.Millisecond)
	_, err = c.Get(ctx, "faq", "abc", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&f.hits))
}

func TestClient_BoundedSize(t *testing.T) {
	f := &fakeCMS{}
	c := newTestClient(t, f, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.Get(ctx, "news", fmt.Sprintf("item-%d", i), nil)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, c.Len(), 3)
	assert.Equal(t, 3, c.Purge())
	assert.Equal(t, 0, c.Len())
}

func TestClient_ConcurrentMissesCollapse(t *testing.T) {
	f := &fakeCMS{delay: 50 * time.Millisecond}
	c := newTestClient(t, f, time.Minute, 10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.List(context.Background(), "news", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.hits))
}

func TestClient_CanceledLeaderDoesNotFailWaiters(t *testing.T) {
	f := &fakeCMS{delay: 100 * time.Millisecond}
	c := newTestClient(t, f, time.Minute, 10)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = c.List(leaderCtx, "news", nil)
	}()

	time.Sleep(20 * time.Millisecond)
	waiterDone := make(chan error, 1)
	go func() {
		_, err := c.List(context.Background(), "news", nil)
		waiterDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.NoError(t, <-waiterDone)
	<-leaderDone
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.hits))
}

func TestClient_Errors(t *testing.T) {
	f := &fakeCMS{}
	c := newTestClient(t, f, time.Minute, 10)
	ctx := context.Background()

	_, err := c.List(ctx, "secrets", nil)
	assert.ErrorIs(t, err, ErrEndpointNotAllowed)

	_, err = c.Get(ctx, "news", "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Get(ctx, "news", "../admin", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	disabled := NewClient(Config{}, zerolog.Nop())
	_, err = disabled.List(ctx, "news", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
