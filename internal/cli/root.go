package cli

import (
	"fmt"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/calendar"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/insights"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/planner"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/tracker"
)

// Context carries the wired services into every command's Run method.
type Context struct {
	Store    storage.Provider
	Calendar calendar.Provider
	Planner  *planner.Service
	Tracker  *tracker.Service
	Insights *insights.Service
	User     string
}

// ResolveDate turns "today", "tomorrow", or YYYY-MM-DD into a date key.
func ResolveDate(s string) (string, error) {
	switch s {
	case "", "today":
		return time.Now().Format(constants.DateFormat), nil
	case "tomorrow":
		return time.Now().AddDate(0, 0, 1).Format(constants.DateFormat), nil
	}
	if _, err := time.Parse(constants.DateFormat, s); err != nil {
		return "", fmt.Errorf("invalid date %q, use YYYY-MM-DD, 'today', or 'tomorrow'", s)
	}
	return s, nil
}

// ParseClockOnDate combines a date key and an HH:MM clock into a UTC
// instant, for busy-interval entry.
func ParseClockOnDate(date, clock string, loc *time.Location) (time.Time, error) {
	ts, err := time.ParseInLocation(constants.DateFormat+" "+constants.TimeFormat, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, use HH:MM", clock)
	}
	return ts.UTC(), nil
}

// FormatMinutes renders a minute count as "1h30m" style text.
func FormatMinutes(min int) string {
	if min < 60 {
		return fmt.Sprintf("%dm", min)
	}
	if min%60 == 0 {
		return fmt.Sprintf("%dh", min/60)
	}
	return fmt.Sprintf("%dh%02dm", min/60, min%60)
}
