package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// Window is one day's working-hours span.
type Window struct {
	Start time.Time
	End   time.Time
}

// BuildWindow resolves a YYYY-MM-DD date plus HH:MM day boundaries into
// a concrete working-hours window in the given location.
func BuildWindow(date, dayStart, dayEnd string, loc *time.Location) (Window, error) {
	day, err := time.ParseInLocation(constants.DateFormat, date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	startMin, err := parseClock(dayStart)
	if err != nil {
		return Window{}, fmt.Errorf("invalid day start: %w", err)
	}
	endMin, err := parseClock(dayEnd)
	if err != nil {
		return Window{}, fmt.Errorf("invalid day end: %w", err)
	}
	return Window{
		Start: day.Add(time.Duration(startMin) * time.Minute),
		End:   day.Add(time.Duration(endMin) * time.Minute),
	}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FreeIntervals subtracts the buffered busy intervals from the
// working-hours window and returns the remaining free spans, sorted by
// start and pairwise non-overlapping. Busy intervals are padded by
// bufferMin on both sides before merging, so padding that joins two
// non-adjacent intervals still subtracts correctly.
func FreeIntervals(w Window, busy []models.BusyInterval, bufferMin int) ([]models.FreeInterval, error) {
	if !w.End.After(w.Start) {
		return nil, fmt.Errorf("%w: window end %s not after start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}

	pad := time.Duration(bufferMin) * time.Minute

	// Pad, clip to the window, and drop intervals fully outside it.
	type span struct{ start, end time.Time }
	var spans []span
	for _, b := range busy {
		s, e := b.Start.Add(-pad), b.End.Add(pad)
		if !e.After(w.Start) || !s.Before(w.End) {
			continue
		}
		if s.Before(w.Start) {
			s = w.Start
		}
		if e.After(w.End) {
			e = w.End
		}
		spans = append(spans, span{s, e})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	// Merge overlapping or adjacent spans into a minimal busy set.
	var merged []span
	for _, s := range spans {
		if n := len(merged); n > 0 && !s.start.After(merged[n-1].end) {
			if s.end.After(merged[n-1].end) {
				merged[n-1].end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}

	// Single linear sweep over the window.
	free := []models.FreeInterval{}
	cursor := w.Start
	for _, s := range merged {
		if cursor.Before(s.start) {
			free = append(free, models.FreeInterval{Start: cursor, End: s.start})
		}
		cursor = s.end
	}
	if cursor.Before(w.End) {
		free = append(free, models.FreeInterval{Start: cursor, End: w.End})
	}

	return free, nil
}
