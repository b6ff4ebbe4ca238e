// Package tracker records actual work against tasks as execution
// sessions and settles actuals when a task is marked done.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/logger"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
)

var (
	// ErrAlreadyTracking rejects a start while any session is active
	// for the user, regardless of which task it tracks.
	ErrAlreadyTracking = errors.New("a session is already being tracked")
	// ErrNoActiveSession rejects a stop with nothing running.
	ErrNoActiveSession = errors.New("no active session")
	// ErrTaskDone rejects start and done against a completed task.
	ErrTaskDone = errors.New("task is already done")
	// ErrTaskNotFound wraps lookups of unknown task ids.
	ErrTaskNotFound = errors.New("task not found")
)

// Service serializes session transitions per user so the one-active-
// session rule holds even under concurrent starts.
type Service struct {
	store storage.Provider
	now   func() time.Time

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func New(store storage.Provider) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		users: make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.users[userID] = lock
	}
	return lock
}

// Start opens a session against the task and moves it to in_progress.
func (s *Service) Start(userID, taskID string) (models.ExecutionSession, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.store.GetTask(taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ExecutionSession{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return models.ExecutionSession{}, fmt.Errorf("failed to load task: %w", err)
	}
	if task.UserID != userID {
		return models.ExecutionSession{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.Status == models.TaskStatusDone {
		return models.ExecutionSession{}, fmt.Errorf("%w: %s", ErrTaskDone, taskID)
	}

	if active, err := s.store.GetActiveSession(userID); err == nil {
		return models.ExecutionSession{}, fmt.Errorf("%w for task %s, stop it first", ErrAlreadyTracking, active.TaskID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.ExecutionSession{}, fmt.Errorf("failed to check active session: %w", err)
	}

	session := models.ExecutionSession{
		ID:     uuid.NewString(),
		UserID: userID,
		TaskID: taskID,
		Start:  s.now(),
	}
	if err := s.store.AddSession(session); err != nil {
		return models.ExecutionSession{}, fmt.Errorf("failed to save session: %w", err)
	}

	if task.Status != models.TaskStatusInProgress {
		task.Status = models.TaskStatusInProgress
		if err := s.store.UpdateTask(task); err != nil {
			return models.ExecutionSession{}, fmt.Errorf("failed to update task status: %w", err)
		}
	}

	logger.Info("session started", "user", userID, "task", taskID, "session", session.ID)
	return session, nil
}

// Stop closes the user's active session and returns it with its end
// time set. The task stays in_progress.
func (s *Service) Stop(userID string) (models.ExecutionSession, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.GetActiveSession(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ExecutionSession{}, ErrNoActiveSession
		}
		return models.ExecutionSession{}, fmt.Errorf("failed to load active session: %w", err)
	}

	end := s.now()
	if err := s.store.CloseSession(session.ID, end); err != nil {
		return models.ExecutionSession{}, fmt.Errorf("failed to close session: %w", err)
	}
	session.End = &end

	logger.Info("session stopped", "user", userID, "task", session.TaskID,
		"minutes", session.DurationMin(end))
	return session, nil
}

// Done completes the task. Any active session for it is closed first,
// then the actual minutes are settled from every session recorded for
// the task. An active session on a different task keeps running.
func (s *Service) Done(userID, taskID string) (models.Task, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.store.GetTask(taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return models.Task{}, fmt.Errorf("failed to load task: %w", err)
	}
	if task.UserID != userID {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.Status == models.TaskStatusDone {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskDone, taskID)
	}

	now := s.now()
	if active, err := s.store.GetActiveSession(userID); err == nil {
		if active.TaskID == taskID {
			if err := s.store.CloseSession(active.ID, now); err != nil {
				return models.Task{}, fmt.Errorf("failed to close session: %w", err)
			}
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Task{}, fmt.Errorf("failed to check active session: %w", err)
	}

	sessions, err := s.store.ListSessionsForTask(userID, taskID)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	actual := 0
	for _, sess := range sessions {
		actual += sess.DurationMin(now)
	}

	task.Status = models.TaskStatusDone
	task.ActualMin = actual
	task.CompletedAt = &now
	if err := s.store.UpdateTask(task); err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	logger.Info("task done", "user", userID, "task", taskID, "actual_min", actual)
	return task, nil
}

// Active returns the user's running session, or ErrNoActiveSession.
func (s *Service) Active(userID string) (models.ExecutionSession, error) {
	session, err := s.store.GetActiveSession(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ExecutionSession{}, ErrNoActiveSession
		}
		return models.ExecutionSession{}, fmt.Errorf("failed to load active session: %w", err)
	}
	return session, nil
}
