// Package insights derives read-only daily and weekly aggregates from
// the stored plans, sessions, and tasks. Nothing here is persisted.
package insights

import (
	"errors"
	"fmt"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
)

type Service struct {
	store storage.Provider
	now   func() time.Time
}

func New(store storage.Provider) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Daily computes the aggregates for one date. Missing data never
// errors: a day with no proposal, no blocks, and no sessions reports
// all zeroes.
func (s *Service) Daily(userID, date string) (models.DailyInsights, error) {
	if _, err := time.Parse(constants.DateFormat, date); err != nil {
		return models.DailyInsights{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	now := s.now()
	out := models.DailyInsights{Date: date, Slipped: []models.SlippedTask{}}

	proposal, err := s.store.GetLatestProposal(userID, date)
	switch {
	case err == nil:
		for _, b := range proposal.Blocks {
			out.Minutes.Planned += b.Minutes()
		}
		for _, busy := range proposal.Busy {
			out.Minutes.CalendarBusy += busy.Minutes()
		}
	case errors.Is(err, storage.ErrNotFound):
		// No plan for the day.
	default:
		return models.DailyInsights{}, fmt.Errorf("failed to load proposal: %w", err)
	}

	blocks, err := s.store.ListBlocksForDay(userID, date)
	if err != nil {
		return models.DailyInsights{}, fmt.Errorf("failed to list blocks: %w", err)
	}
	for _, b := range blocks {
		if b.State == models.BlockConfirmed {
			out.Minutes.Confirmed += b.Minutes()
		}
	}

	sessions, err := s.store.ListSessionsForDay(userID, date)
	if err != nil {
		return models.DailyInsights{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	workedTasks := make(map[string]bool)
	for _, sess := range sessions {
		out.Minutes.Executed += sess.DurationMin(now)
		workedTasks[sess.TaskID] = true
	}

	out.Slipped = slippedTasks(s.store, blocks, workedTasks, now)

	diff, est, err := s.completionDeltas(userID, date)
	if err != nil {
		return models.DailyInsights{}, err
	}
	if est > 0 {
		out.EstimationBias = float64(diff) / float64(est)
	}
	return out, nil
}

// Weekly aggregates seven consecutive days starting at weekStart. The
// weekly bias is estimate-weighted across the whole range rather than
// an average of the daily values.
func (s *Service) Weekly(userID, weekStart string) (models.WeeklyInsights, error) {
	start, err := time.Parse(constants.DateFormat, weekStart)
	if err != nil {
		return models.WeeklyInsights{}, fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}

	out := models.WeeklyInsights{WeekStart: weekStart, Days: make([]models.DailyInsights, 0, 7)}
	var diffSum, estSum int
	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i).Format(constants.DateFormat)
		day, err := s.Daily(userID, date)
		if err != nil {
			return models.WeeklyInsights{}, err
		}
		out.Days = append(out.Days, day)
		out.Minutes.Planned += day.Minutes.Planned
		out.Minutes.Confirmed += day.Minutes.Confirmed
		out.Minutes.Executed += day.Minutes.Executed
		out.Minutes.CalendarBusy += day.Minutes.CalendarBusy

		diff, est, err := s.completionDeltas(userID, date)
		if err != nil {
			return models.WeeklyInsights{}, err
		}
		diffSum += diff
		estSum += est
	}
	if estSum > 0 {
		out.EstimationBias = float64(diffSum) / float64(estSum)
	}
	return out, nil
}

// completionDeltas sums (actual - estimate) and estimate over the
// tasks the user completed on the given date. Tasks with a zero
// estimate carry no weight.
func (s *Service) completionDeltas(userID, date string) (diff, est int, err error) {
	tasks, err := s.store.ListTasks(userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, task := range tasks {
		if task.Status != models.TaskStatusDone || task.CompletedAt == nil {
			continue
		}
		if task.CompletedAt.UTC().Format(constants.DateFormat) != date {
			continue
		}
		if task.EstimateMin <= 0 {
			continue
		}
		diff += task.ActualMin - task.EstimateMin
		est += task.EstimateMin
	}
	return diff, est, nil
}

// slippedTasks finds confirmed blocks whose scheduled time has fully
// passed without any session recorded against the task that day. A
// task already marked done did not slip, whenever the work happened.
func slippedTasks(store storage.Provider, blocks []models.PlannedBlock, workedTasks map[string]bool, now time.Time) []models.SlippedTask {
	slipped := []models.SlippedTask{}
	seen := make(map[string]bool)
	for _, b := range blocks {
		if b.State != models.BlockConfirmed || !b.End.Before(now) {
			continue
		}
		if workedTasks[b.TaskID] || seen[b.TaskID] {
			continue
		}
		seen[b.TaskID] = true
		entry := models.SlippedTask{TaskID: b.TaskID}
		if task, err := store.GetTask(b.TaskID); err == nil {
			if task.Status == models.TaskStatusDone {
				continue
			}
			entry.Title = task.Title
		}
		slipped = append(slipped, entry)
	}
	return slipped
}
