// Package ai produces assistant replies through the Gemini API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Errors returned by the completer
var (
	ErrNotConfigured = errors.New("ai completion not configured")
	ErrEmptyReply    = errors.New("ai returned an empty reply")
)

// Turn is one prior message in a conversation
type Turn struct {
	FromAssistant bool
	Text          string
}

// Completer turns a conversation into the next assistant message
type Completer interface {
	Complete(ctx context.Context, history []Turn, prompt string) (string, error)
}

// Config configures the Gemini client
type Config struct {
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	BaseURL      string
	HTTPClient   *http.Client
}

// GeminiCompleter implements Completer with google.golang.org/genai
type GeminiCompleter struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiCompleter creates a completer
func NewGeminiCompleter(ctx context.Context, cfg Config) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	gen := &genai.GenerateContentConfig{}
	if cfg.SystemPrompt != "" {
		gen.SystemInstruction = genai.NewContentFromText(cfg.SystemPrompt, genai.RoleUser)
	}
	if cfg.MaxTokens > 0 {
		gen.MaxOutputTokens = int32(cfg.MaxTokens)
	}

	return &GeminiCompleter{client: client, model: cfg.Model, config: gen}, nil
}

// Complete sends history plus the new prompt and returns the reply text
func (g *GeminiCompleter) Complete(ctx context.Context, history []Turn, prompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := genai.Role(genai.RoleUser)
		if t.FromAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
