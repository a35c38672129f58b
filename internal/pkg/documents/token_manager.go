// Package documents integrates the document-collection provider: OAuth
// credentials, submission requests and signed completion callbacks.
package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/tokencrypt"
)

// Errors returned by the token manager
var (
	ErrNoRefreshToken = errors.New("provider returned no refresh token")
	ErrRefreshFailed  = errors.New("refresh token exchange failed")
)

const (
	defaultSkew     = time.Minute
	defaultLifetime = 5 * time.Minute
)

// TokenStore persists sealed credentials. WithLockedToken must serialize
// callers for the same service across processes.
type TokenStore interface {
	Get(ctx context.Context, service string) (*models.OAuthToken, error)
	Upsert(ctx context.Context, t *models.OAuthToken) error
	WithLockedToken(ctx context.Context, service string, fn func(current *models.OAuthToken) (*models.OAuthToken, error)) error
}

// OAuthConfig configures the provider endpoints
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
}

// TokenManager hands out access tokens for the provider API. A cached
// token is reused until its expiry minus skew; after that one refresh runs
// per process (singleflight) and per database (row lock), and the rotated
// refresh token is stored before the new access token is used.
type TokenManager struct {
	oauth  *oauth2.Config
	store  TokenStore
	sealer *tokencrypt.Sealer
	http   *http.Client
	skew   time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu     sync.Mutex
	cached *oauth2.Token
	group  singleflight.Group
}

// NewTokenManager creates a token manager
func NewTokenManager(cfg OAuthConfig, store TokenStore, sealer *tokencrypt.Sealer, logger zerolog.Logger) *TokenManager {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &TokenManager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		store:  store,
		sealer: sealer,
		http:   &http.Client{Timeout: timeout},
		skew:   defaultSkew,
		now:    time.Now,
		logger: logger,
	}
}

// AuthCodeURL returns the consent URL that yields a refresh token
func (m *TokenManager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens and stores them
func (m *TokenManager) Exchange(ctx context.Context, code string) error {
	tok, err := m.oauth.Exchange(m.clientContext(ctx), code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	stored, err := m.seal(tok, tok.RefreshToken, scopeOf(tok, m.oauth.Scopes))
	if err != nil {
		return err
	}
	if err := m.store.Upsert(ctx, stored); err != nil {
		return err
	}

	m.setCached(m.withExpiry(tok))
	m.logger.Info().Str("service", models.ServiceDocuments).Msg("Document provider connected")
	return nil
}

// AccessToken returns a usable access token, refreshing when needed
func (m *TokenManager) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	if tok := m.cachedToken(); tok != nil {
		return tok, nil
	}

	v, err, _ := m.group.Do(models.ServiceDocuments, func() (interface{}, error) {
		if tok := m.cachedToken(); tok != nil {
			return tok, nil
		}
		// shared by every waiting caller, so the first caller's cancellation must not fail the rest
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.http.Timeout)
		defer cancel()
		tok, err := m.refresh(sharedCtx)
		if err != nil {
			return nil, err
		}
		m.setCached(tok)
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// TokenSource adapts the manager to oauth2.TokenSource for one request context
func (m *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &contextTokenSource{ctx: ctx, m: m}
}

// Invalidate drops the in-process access token
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

type contextTokenSource struct {
	ctx context.Context
	m   *TokenManager
}

func (s *contextTokenSource) Token() (*oauth2.Token, error) {
	return s.m.AccessToken(s.ctx)
}

func (m *TokenManager) refresh(ctx context.Context) (*oauth2.Token, error) {
	var result *oauth2.Token

	err := m.store.WithLockedToken(ctx, models.ServiceDocuments, func(current *models.OAuthToken) (*models.OAuthToken, error) {
		// another process may have refreshed while we waited for the lock
		if tok := m.storedAccessToken(current); tok != nil {
			result = tok
			return nil, nil
		}

		refreshToken, err := m.sealer.Open(current.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("open refresh token: %w", err)
		}

		tok, err := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			m.logger.Error().Err(err).Str("service", models.ServiceDocuments).Msg("Refresh token exchange failed")
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		tok = m.withExpiry(tok)

		next, err := m.seal(tok, refreshToken, current.Scope)
		if err != nil {
			return nil, err
		}
		result = tok
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *TokenManager) storedAccessToken(current *models.OAuthToken) *oauth2.Token {
	if current.AccessToken == nil || current.AccessTokenExpiresAt == nil {
		return nil
	}
	access, err := m.sealer.Open(*current.AccessToken)
	if err != nil || access == "" {
		return nil
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: *current.AccessTokenExpiresAt}
	if !m.fresh(tok) {
		return nil
	}
	return tok
}

// seal builds the row to store; the previous refresh token is kept when the provider does not rotate it
func (m *TokenManager) seal(tok *oauth2.Token, previousRefresh, scope string) (*models.OAuthToken, error) {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	sealedRefresh, err := m.sealer.Seal(refresh)
	if err != nil {
		return nil, fmt.Errorf("seal refresh token: %w", err)
	}
	sealedAccess, err := m.sealer.Seal(tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}

	expiry := m.withExpiry(tok).Expiry
	return &models.OAuthToken{
		Service:              models.ServiceDocuments,
		RefreshToken:         sealedRefresh,
		AccessToken:          &sealedAccess,
		AccessTokenExpiresAt: &expiry,
		Scope:                scope,
	}, nil
}

func (m *TokenManager) withExpiry(tok *oauth2.Token) *oauth2.Token {
	if tok.Expiry.IsZero() {
		tok.Expiry = m.now().Add(defaultLifetime)
	}
	return tok
}

func (m *TokenManager) fresh(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != "" && m.now().Before(tok.Expiry.Add(-m.skew))
}

func (m *TokenManager) cachedToken() *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fresh(m.cached) {
		return m.cached
	}
	return nil
}

func (m *TokenManager) setCached(tok *oauth2.Token) {
	m.mu.Lock()
	m.cached = tok
	m.mu.Unlock()
}

func (m *TokenManager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.http)
}

func scopeOf(tok *oauth2.Token, fallback []string) string {
	if s, ok := tok.Extra("scope").(string); ok && s != "" {
		return s
	}
	return strings.Join(fallback, " ")
}
