package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ErrProviderRejected is returned when the provider answers with a non-2xx status
var ErrProviderRejected = errors.New("document provider rejected the request")

// SubmissionRequest asks the provider to open a document collection form
type SubmissionRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// Submission is the provider's handle for one collection form
type Submission struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client calls the provider's submissions API with OAuth credentials
type Client struct {
	baseURL    string
	templateID string
	tokens     *TokenManager
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient creates a submissions client
func NewClient(baseURL, templateID string, tokens *TokenManager, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		templateID: templateID,
		tokens:     tokens,
		timeout:    timeout,
		logger:     logger,
	}
}

// CreateSubmission opens a collection form for one applicant
func (c *Client) CreateSubmission(ctx context.Context, req SubmissionRequest) (*Submission, error) {
	payload, err := json.Marshal(struct {
		TemplateID string `json:"template_id"`
		SubmissionRequest
	}{c.templateID, req})
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	hc := oauth2.NewClient(c.tokens.clientContext(ctx), c.tokens.TokenSource(ctx))
	hc.Timeout = c.timeout

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send submission request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("externalID", req.ExternalID).Msg("Document provider rejected submission")
		return nil, fmt.Errorf("%w: status %d", ErrProviderRejected, resp.StatusCode)
	}

	var sub Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("%w: missing submission id", ErrProviderRejected)
	}
	return &sub, nil
}
