// Package planner orchestrates free-time computation, scoring, and
// placement into proposals, and materializes accepted blocks as
// external calendar events.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/calendar"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/logger"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/scheduler"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
)

var (
	// ErrProposalNotFound is returned for an unknown proposal id or
	// one belonging to another user.
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrStaleProposal is returned when the proposal was superseded by
	// a newer propose call or outlived its TTL. The caller must
	// propose again; stale data is never silently reused.
	ErrStaleProposal = errors.New("proposal is stale")
)

// Service implements the propose/confirm protocol. In-process confirms
// serialize on confirmMu; across processes, concurrent confirms on the
// same proposal resolve per block through the store's compare-and-set.
type Service struct {
	store storage.Provider
	cal   calendar.Provider

	weights scheduler.Weights
	now     func() time.Time

	confirmMu sync.Mutex
}

func New(store storage.Provider, cal calendar.Provider, weights scheduler.Weights) *Service {
	return &Service{
		store:   store,
		cal:     cal,
		weights: weights,
		now:     time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetWeights replaces the scoring weights used by later propose calls.
func (s *Service) SetWeights(w scheduler.Weights) {
	s.weights = w
}

// Propose computes a fresh schedule proposal for the user's day:
// snapshot eligible tasks and busy intervals, derive free intervals,
// score, place, persist. Any prior proposal for the same user/date is
// superseded and its id stops being confirmable.
func (s *Service) Propose(ctx context.Context, userID, date string) (models.Proposal, error) {
	settings, err := s.store.GetSettings()
	if err != nil {
		return models.Proposal{}, fmt.Errorf("failed to load settings: %w", err)
	}

	tasks, err := s.store.ListEligibleTasks(userID)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	busy, err := s.cal.ListBusyIntervals(ctx, userID, date)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("failed to fetch busy intervals: %w", err)
	}

	window, err := scheduler.BuildWindow(date, settings.DayStart, settings.DayEnd, settings.Location())
	if err != nil {
		return models.Proposal{}, err
	}
	free, err := scheduler.FreeIntervals(window, busy, settings.BufferMin)
	if err != nil {
		return models.Proposal{}, err
	}

	now := s.now()
	scored := s.weights.ScoreTasks(tasks, now)
	placed := scheduler.Place(scored, free, now)

	proposal := models.Proposal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		CreatedAt: now,
		Blocks:    placed.Blocks,
		Unplaced:  placed.Unplaced,
		Busy:      busy,
	}
	for i := range proposal.Blocks {
		proposal.Blocks[i].ID = uuid.NewString()
		proposal.Blocks[i].Date = date
	}

	if err := s.store.SaveProposal(proposal); err != nil {
		return models.Proposal{}, fmt.Errorf("failed to persist proposal: %w", err)
	}

	logger.Info("proposal created", "user", userID, "date", date,
		"blocks", len(proposal.Blocks), "unplaced", len(proposal.Unplaced))
	return proposal, nil
}

// SkippedBlock reports a block confirm did not materialize, and why.
type SkippedBlock struct {
	BlockID string `json:"block_id"`
	Reason  string `json:"reason"`
}

// ConfirmResult is the per-block outcome of one confirm call.
type ConfirmResult struct {
	Created []models.PlannedBlock `json:"created"`
	Skipped []SkippedBlock        `json:"skipped"`
}

// Confirm materializes the accepted blocks of a proposal as calendar
// events. It is idempotent: re-invoking with the same arguments after
// a partial failure retries only the blocks that did not previously
// succeed, and a block that already carries an event is reported as
// already_confirmed. External failures are per-block and never abort
// the call or roll back blocks that already succeeded.
func (s *Service) Confirm(ctx context.Context, userID, proposalID string, acceptBlockIDs []string) (ConfirmResult, error) {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	proposal, err := s.store.GetProposal(proposalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ConfirmResult{}, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
		}
		return ConfirmResult{}, err
	}
	if proposal.UserID != userID {
		return ConfirmResult{}, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if proposal.SupersededAt != nil {
		return ConfirmResult{}, fmt.Errorf("%w: superseded by a newer proposal", ErrStaleProposal)
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if ttl := time.Duration(settings.ProposalTTLMin) * time.Minute; ttl > 0 {
		if s.now().After(proposal.CreatedAt.Add(ttl)) {
			return ConfirmResult{}, fmt.Errorf("%w: expired at %s", ErrStaleProposal,
				proposal.CreatedAt.Add(ttl).Format(time.RFC3339))
		}
	}

	accepted := make(map[string]bool, len(acceptBlockIDs))
	for _, id := range acceptBlockIDs {
		accepted[id] = true
	}

	result := ConfirmResult{Created: []models.PlannedBlock{}, Skipped: []SkippedBlock{}}
	timeout := time.Duration(settings.EventTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	for _, block := range proposal.Blocks {
		if !accepted[block.ID] {
			// Mark declined blocks skipped; losing this CAS just means
			// a previous call already settled the block.
			if _, err := s.store.TransitionBlock(block.ID, models.BlockProposed, models.BlockSkipped, models.ReasonNotAccepted); err != nil {
				return result, err
			}
			continue
		}

		switch block.State {
		case models.BlockConfirmed:
			if block.CalendarEventID != "" {
				result.Skipped = append(result.Skipped, SkippedBlock{BlockID: block.ID, Reason: models.ReasonAlreadyConfirmed})
				continue
			}
			// Confirmed with no event id: an earlier call crashed
			// between the transition and the revert. Retry the event.
			created, skip, err := s.createEvent(ctx, userID, proposal, block, timeout)
			if err != nil {
				return result, err
			}
			if skip != nil {
				result.Skipped = append(result.Skipped, *skip)
			} else {
				result.Created = append(result.Created, created)
			}
			continue
		case models.BlockSkipped:
			result.Skipped = append(result.Skipped, SkippedBlock{BlockID: block.ID, Reason: block.Reason})
			continue
		}

		won, err := s.store.TransitionBlock(block.ID, models.BlockProposed, models.BlockConfirmed, "")
		if err != nil {
			return result, err
		}
		if !won {
			// A concurrent confirm claimed the block first.
			result.Skipped = append(result.Skipped, SkippedBlock{BlockID: block.ID, Reason: models.ReasonAlreadyConfirmed})
			continue
		}

		block.State = models.BlockConfirmed
		created, skip, err := s.createEvent(ctx, userID, proposal, block, timeout)
		if err != nil {
			return result, err
		}
		if skip != nil {
			// Release the block so a retry can attempt it again.
			if _, err := s.store.TransitionBlock(block.ID, models.BlockConfirmed, models.BlockProposed, ""); err != nil {
				return result, err
			}
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Created = append(result.Created, created)
	}

	logger.Info("proposal confirmed", "user", userID, "proposal", proposalID,
		"created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}

func (s *Service) createEvent(ctx context.Context, userID string, proposal models.Proposal, block models.PlannedBlock, timeout time.Duration) (models.PlannedBlock, *SkippedBlock, error) {
	task, err := s.store.GetTask(block.TaskID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.PlannedBlock{}, nil, err
	}
	summary := "Focus: " + task.Title
	if task.Title == "" {
		summary = "Focus block"
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	eventID, err := s.cal.CreateEvent(callCtx, userID, calendar.Event{
		Summary:     summary,
		Description: block.Reason,
		Start:       block.Start,
		End:         block.End,
	})
	if err != nil {
		logger.Warn("calendar event creation failed", "block", block.ID, "error", err)
		return models.PlannedBlock{}, &SkippedBlock{BlockID: block.ID, Reason: err.Error()}, nil
	}

	if err := s.store.SetBlockEvent(block.ID, eventID); err != nil {
		return models.PlannedBlock{}, nil, err
	}
	block.CalendarEventID = eventID
	return block, nil, nil
}

// ReleaseTask cascades a task deletion: every confirmed block for the
// task loses its calendar event and is marked skipped. Proposed blocks
// are skipped as well so they cannot be confirmed later.
func (s *Service) ReleaseTask(ctx context.Context, userID, taskID string) error {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	blocks, err := s.store.ListBlocksForTask(taskID)
	if err != nil {
		return err
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	timeout := time.Duration(settings.EventTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	for _, block := range blocks {
		if block.UserID != userID {
			continue
		}
		if block.State == models.BlockConfirmed && block.CalendarEventID != "" {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			err := s.cal.DeleteEvent(callCtx, userID, block.CalendarEventID)
			cancel()
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to delete event for block %s: %w", block.ID, err)
			}
		}
		if block.State != models.BlockSkipped {
			if _, err := s.store.TransitionBlock(block.ID, block.State, models.BlockSkipped, models.ReasonTaskDeleted); err != nil {
				return err
			}
		}
	}
	return nil
}

// Latest returns the most recent proposal for the user/date.
func (s *Service) Latest(userID, date string) (models.Proposal, error) {
	p, err := s.store.GetLatestProposal(userID, date)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Proposal{}, fmt.Errorf("%w: no proposal for %s", ErrProposalNotFound, date)
		}
		return models.Proposal{}, err
	}
	return p, nil
}
