package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
)

// LocalProvider serves the Provider contract from the local store's
// busy-interval and event tables, so the CLI works end to end without
// a hosted calendar account.
type LocalProvider struct {
	store storage.Provider
}

func NewLocalProvider(store storage.Provider) *LocalProvider {
	return &LocalProvider{store: store}
}

func (p *LocalProvider) ListBusyIntervals(ctx context.Context, userID, date string) ([]models.BusyInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return p.store.ListBusyIntervals(userID, date)
}

func (p *LocalProvider) CreateEvent(ctx context.Context, userID string, ev Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	id := uuid.NewString()
	if err := p.store.AddCalendarEvent(id, userID, ev.Summary, ev.Description, ev.Start, ev.End); err != nil {
		return "", err
	}
	return id, nil
}

func (p *LocalProvider) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return p.store.DeleteCalendarEvent(eventID)
}

// AddBusy records a busy interval in the local tables, the stand-in
// for an appointment on the external calendar.
func (p *LocalProvider) AddBusy(userID, date string, start, end time.Time, source string) error {
	if !end.After(start) {
		return fmt.Errorf("busy interval end must be after start")
	}
	if source == "" {
		source = "calendar"
	}
	return p.store.AddBusyInterval(userID, date, models.BusyInterval{Start: start, End: end, Source: source})
}
