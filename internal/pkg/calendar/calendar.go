// Package calendar reads busy slots from the staff consultation calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned when no calendar id is set
var ErrNotConfigured = errors.New("calendar not configured")

const maxEvents = 250

// Config selects credentials and the calendar to read
type Config struct {
	APIKey          string
	CredentialsFile string
	CalendarID      string
	Endpoint        string
	HTTPClient      *http.Client
}

// Slot is a busy interval. Event titles are never exposed.
type Slot struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Reader lists busy slots
type Reader interface {
	BusySlots(ctx context.Context, from, to time.Time) ([]Slot, error)
}

// Client reads events through the Calendar API
type Client struct {
	svc        *gcal.Service
	calendarID string
}

// NewClient builds a Calendar API client from config
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.CalendarID == "" {
		return nil, ErrNotConfigured
	}

	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(gcal.CalendarReadonlyScope))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, ErrNotConfigured
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc, calendarID: cfg.CalendarID}, nil
}

// BusySlots returns opaque, confirmed events overlapping [from, to) ordered by start
func (c *Client) BusySlots(ctx context.Context, from, to time.Time) ([]Slot, error) {
	events, err := c.svc.Events.List(c.calendarID).
		Context(ctx).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEvents).
		Fields("items(start,end,status,transparency)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	slots := make([]Slot, 0, len(events.Items))
	for _, ev := range events.Items {
		if ev.Status == "cancelled" || ev.Transparency == "transparent" {
			continue
		}
		slot, ok := toSlot(ev)
		if !ok {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func toSlot(ev *gcal.Event) (Slot, bool) {
	if ev.Start == nil || ev.End == nil {
		return Slot{}, false
	}

	if ev.Start.DateTime != "" {
		start, err1 := time.Parse(time.RFC3339, ev.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, ev.End.DateTime)
		if err1 != nil || err2 != nil {
			return Slot{}, false
		}
		return Slot{Start: start, End: end}, true
	}

	start, err1 := time.Parse(time.DateOnly, ev.Start.Date)
	end, err2 := time.Parse(time.DateOnly, ev.End.Date)
	if err1 != nil || err2 != nil {
		return Slot{}, false
	}
	return Slot{Start: start, End: end, AllDay: true}, true
}
