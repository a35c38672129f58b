package documents

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/tokencrypt"
)

// memoryStore serializes WithLockedToken with a mutex in place of a row lock
type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]models.OAuthToken
	writes int32
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: map[string]models.OAuthToken{}}
}

func (s *memoryStore) Get(_ context.Context, service string) (*models.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[service]
	if !ok {
		return nil, apperrors.ErrIntegrationNotConnected
	}
	return &t, nil
}

func (s *memoryStore) Upsert(_ context.Context, t *models.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Service] = *t
	atomic.AddInt32(&s.writes, 1)
	return nil
}

func (s *memoryStore) WithLockedToken(_ context.Context, service string, fn func(*models.OAuthToken) (*models.OAuthToken, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[service]
	if !ok {
		return apperrors.ErrIntegrationNotConnected
	}
	next, err := fn(&t)
	if err != nil || next == nil {
		return err
	}
	next.Service = service
	s.tokens[service] = *next
	atomic.AddInt32(&s.writes, 1)
	return nil
}

type fakeProvider struct {
	refreshes int32
	lastRT    atomic.Value
	delay     time.Duration
	expiresIn int
}

func (p *fakeProvider) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if p.delay > 0 {
			time.Sleep(p.delay)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			fmt.Fprint(w, `{"access_token":"at-0","refresh_token":"rt-0","token_type":"Bearer","expires_in":3600,"scope":"forms"}`)
		case "refresh_token":
			n := atomic.AddInt32(&p.refreshes, 1)
			p.lastRT.Store(r.Form.Get("refresh_token"))
			fmt.Fprintf(w, `{"access_token":"at-%d","refresh_token":"rt-%d","token_type":"Bearer","expires_in":%d}`, n, n, p.expiresIn)
		default:
			http.Error(w, "unsupported", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/submissions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tmpl-1", body["template_id"])
		assert.Equal(t, "application-7", body["external_id"])
		assert.Regexp(t, `^Bearer at-\d+$`, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"sub-1","url":"https://docs.example.com/f/sub-1"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSealer(t *testing.T) *tokencrypt.Sealer {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	s, err := tokencrypt.NewSealer(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	return s
}

func setup(t *testing.T, p *fakeProvider) (*TokenManager, *memoryStore, *tokencrypt.Sealer, *httptest.Server) {
	srv := p.server(t)
	store := newMemoryStore()
	sealer := newSealer(t)
	m := NewTokenManager(OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		RedirectURL:  "http://localhost/callback",
		Scopes:       []string{"forms"},
		Timeout:      time.Second,
	}, store, sealer, zerolog.Nop())
	return m, store, sealer, srv
}

func seedRefreshToken(t *testing.T, store *memoryStore, sealer *tokencrypt.Sealer, rt string) {
	sealed, err := sealer.Seal(rt)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), &models.OAuthToken{
		Service:      models.ServiceDocuments,
		RefreshToken: sealed,
	}))
}

func TestTokenManager_Exchange(t *testing.T) {
	m, store, sealer, _ := setup(t, &fakeProvider{expiresIn: 3600})

	require.NoError(t, m.Exchange(context.Background(), "code-1"))

	stored, err := store.Get(context.Background(), models.ServiceDocuments)
	require.NoError(t, err)
	assert.NotEqual(t, "rt-0", stored.RefreshToken)
	rt, err := sealer.Open(stored.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "rt-0", rt)
	assert.Equal(t, "forms", stored.Scope)

	tok, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-0", tok.AccessToken)
}

func TestTokenManager_RefreshPersistsRotatedToken(t *testing.T) {
	p := &fakeProvider{expiresIn: 3600}
	m, store, sealer, _ := setup(t, p)
	seedRefreshToken(t, store, sealer, "rt-seed")

	tok, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-seed", p.lastRT.Load())

	stored, _ := store.Get(context.Background(), models.ServiceDocuments)
	rt, err := sealer.Open(stored.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", rt)

	// cached until expiry minus skew
	_, err = m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.refreshes))
}

func TestTokenManager_ExpiredTokenIsNotReused(t *testing.T) {
	p := &fakeProvider{expiresIn: 3600}
	m, store, sealer, _ := setup(t, p)
	seedRefreshToken(t, store, sealer, "rt-seed")

	now := time.Now()
	m.now = func() time.Time { return now }

	first, err := m.AccessToken(context.Background())
	require.NoError(t, err)

	// inside the skew window the token counts as expired
	now = first.Expiry.Add(-m.skew + time.Second)
	second, err := m.AccessToken(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.refreshes))
	assert.Equal(t, "rt-1", p.lastRT.Load())
}

func TestTokenManager_ConcurrentRequestsRefreshOnce(t *testing.T) {
	p := &fakeProvider{expiresIn: 3600, delay: 50 * time.Millisecond}
	m, store, sealer, _ := setup(t, p)
	seedRefreshToken(t, store, sealer, "rt-seed")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "at-1", tok.AccessToken)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.refreshes))
}

func TestTokenManager_CanceledLeaderDoesNotFailWaiters(t *testing.T) {
	p := &fakeProvider{expiresIn: 3600, delay: 100 * time.Millisecond}
	m, store, sealer, _ := setup(t, p)
	seedRefreshToken(t, store, sealer, "rt-seed")

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = m.AccessToken(leaderCtx)
	}()

	time.Sleep(20 * time.Millisecond)
	type result struct {
		tok string
		err error
	}
	waiterDone := make(chan result, 1)
	go func() {
		tok, err := m.AccessToken(context.Background())
		if err != nil {
			waiterDone <- result{err: err}
			return
		}
		waiterDone <- result{tok: tok.AccessToken}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	res := <-waiterDone
	require.NoError(t, res.err)
	assert.Equal(t, "at-1", res.tok)
	<-leaderDone
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.refreshes))
}

func TestTokenManager_UsesTokenRefreshedByAnotherProcess(t *testing.T) {
	p := &fakeProvider{expiresIn: 3600}
	m, store, sealer, _ := setup(t, p)

	access, err := sealer.Seal("at-other")
	require.NoError(t, err)
	refresh, err := sealer.Seal("rt-other")
	require.NoError(t, err)
	expiry := time.Now().Add(time.Hour)
	require.NoError(t, store.Upsert(context.Background(), &models.OAuthToken{
		Service:              models.ServiceDocuments,
		RefreshToken:         refresh,
		AccessToken:          &access,
		AccessTokenExpiresAt: &expiry,
	}))

	tok, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-other", tok.AccessToken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.refreshes))
}

func TestTokenManager_NotConnected(t *testing.T) {
	m, _, _, _ := setup(t, &fakeProvider{})
	_, err := m.AccessToken(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrIntegrationNotConnected)
}

func TestClient_CreateSubmission(t *testing.T) {
	p := &fakeProvider{expiresIn: 3600}
	m, store, sealer, srv := setup(t, p)
	seedRefreshToken(t, store, sealer, "rt-seed")

	c := NewClient(srv.URL, "tmpl-1", m, time.Second, zerolog.Nop())
	sub, err := c.CreateSubmission(context.Background(), SubmissionRequest{
		ExternalID: "application-7",
		Email:      "kai@example.com",
		Name:       "Kai",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "https://docs.example.com/f/sub-1", sub.URL)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"submission.completed","submission_id":"sub-1"}`)
	sig := Sign("shh", body)

	assert.True(t, VerifySignature("shh", body, sig))
	assert.True(t, VerifySignature("shh", body, "sha256="+sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("shh", append(body, ' '), sig))
	assert.False(t, VerifySignature("shh", body, "not-hex"))
	assert.False(t, VerifySignature("", body, sig))
}
