// Package chatops posts operational notifications to a Slack incoming webhook.
package chatops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// ErrNotConfigured is returned by Notify when no webhook URL is set
var ErrNotConfigured = errors.New("chatops webhook not configured")

// Field is one label/value pair rendered in the message body
type Field struct {
	Label string
	Value string
}

// Notification is a static message: a header, a line of text and optional fields
type Notification struct {
	Title  string
	Text   string
	Fields []Field
}

// Notifier delivers notifications. Failures are returned as-is and never retried.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SlackNotifier sends notifications through an incoming webhook
type SlackNotifier struct {
	webhookURL string
	username   string
	client     *http.Client
}

// NewSlackNotifier creates a notifier. An empty webhookURL yields a notifier
// that returns ErrNotConfigured.
func NewSlackNotifier(webhookURL, username string, timeout time.Duration) *SlackNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		username:   username,
		client:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a webhook URL is configured
func (s *SlackNotifier) Enabled() bool {
	return s.webhookURL != ""
}

// Notify posts the notification once
func (s *SlackNotifier) Notify(ctx context.Context, n Notification) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}

	msg := &slack.WebhookMessage{
		Username: s.username,
		Text:     fallbackText(n),
		Blocks:   &slack.Blocks{BlockSet: buildBlocks(n)},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		return fmt.Errorf("post chatops webhook: %w", err)
	}
	return nil
}

func fallbackText(n Notification) string {
	if n.Text == "" {
		return n.Title
	}
	return n.Title + ": " + n.Text
}

func buildBlocks(n Notification) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, n.Title, false, false)),
	}

	var text *slack.TextBlockObject
	if n.Text != "" {
		text = slack.NewTextBlockObject(slack.MarkdownType, n.Text, false, false)
	}

	var fields []*slack.TextBlockObject
	for _, f := range n.Fields {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", f.Label, f.Value), false, false))
	}

	if text != nil || len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(text, fields, nil))
	}
	return blocks
}
