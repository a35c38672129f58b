package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/calendar"
)

// Availability window bounds in days
const (
	DefaultAvailabilityDays = 14
	MaxAvailabilityDays     = 60
)

// CalendarService exposes staff consultation availability
type CalendarService interface {
	Availability(ctx context.Context, days int) (*dto.AvailabilityResponse, error)
}

// calendarServiceImpl implements CalendarService
type calendarServiceImpl struct {
	reader BusyCalendar
	logger zerolog.Logger
	now    func() time.Time
}

// NewCalendarService creates a new CalendarService. reader may be nil when no
// calendar is configured.
func NewCalendarService(reader BusyCalendar, logger zerolog.Logger) CalendarService {
	return &calendarServiceImpl{reader: reader, logger: logger, now: time.Now}
}

// Availability lists busy windows from now for the given number of days
func (s *calendarServiceImpl) Availability(ctx context.Context, days int) (*dto.AvailabilityResponse, error) {
	if s.reader == nil {
		return nil, apperrors.ErrIntegrationDisabled
	}
	if days == 0 {
		days = DefaultAvailabilityDays
	}
	if days < 0 || days > MaxAvailabilityDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", apperrors.ErrValidationFailed, MaxAvailabilityDays)
	}

	from := s.now().UTC().Truncate(time.Minute)
	to := from.AddDate(0, 0, days)

	slots, err := s.reader.BusySlots(ctx, from, to)
	if err != nil {
		if errors.Is(err, calendar.ErrNotConfigured) {
			return nil, apperrors.ErrIntegrationDisabled
		}
		s.logger.Error().Err(err).Msg("Calendar read failed")
		return nil, apperrors.NewExternalServiceError("calendar", err)
	}

	busy := make([]dto.BusySlot, 0, len(slots))
	for _, slot := range slots {
		busy = append(busy, dto.BusySlot{Start: slot.Start, End: slot.End, AllDay: slot.AllDay})
	}
	return &dto.AvailabilityResponse{From: from, To: to, Busy: busy}, nil
}
