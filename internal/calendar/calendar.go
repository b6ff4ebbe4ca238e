// Package calendar defines the external calendar contract the planner
// depends on. Real providers are network clients and may fail
// transiently; callers bound every call with a context deadline.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// ErrUnavailable wraps transient provider failures (timeouts, auth).
var ErrUnavailable = errors.New("calendar provider unavailable")

// Event is the payload for a focus-block calendar entry.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

type Provider interface {
	// ListBusyIntervals returns the user's busy spans for one
	// YYYY-MM-DD day, clipped to that day.
	ListBusyIntervals(ctx context.Context, userID, date string) ([]models.BusyInterval, error)
	// CreateEvent materializes a confirmed block and returns the
	// provider's event id.
	CreateEvent(ctx context.Context, userID string, ev Event) (string, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}
