package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// MemoryStore is an in-process Provider used by service tests. All
// mutations, including TransitionBlock, run under one mutex so the
// compare-and-set contract holds under concurrent confirms.
type MemoryStore struct {
	mu sync.Mutex

	settings  Settings
	tasks     map[string]models.Task
	proposals map[string]*models.Proposal
	blocks    map[string]*models.PlannedBlock
	sessions  map[string]*models.ExecutionSession
	busy      map[string][]models.BusyInterval // userID|date
	events    map[string]string                // eventID -> userID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:  DefaultSettings(),
		tasks:     make(map[string]models.Task),
		proposals: make(map[string]*models.Proposal),
		blocks:    make(map[string]*models.PlannedBlock),
		sessions:  make(map[string]*models.ExecutionSession),
		busy:      make(map[string][]models.BusyInterval),
		events:    make(map[string]string),
	}
}

func (s *MemoryStore) Init() error  { return nil }
func (s *MemoryStore) Load() error  { return nil }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetSettings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *MemoryStore) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *MemoryStore) AddTask(task models.Task) error {
	return s.UpdateTask(task)
}

func (s *MemoryStore) GetTask(id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

func (s *MemoryStore) ListTasks(userID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []models.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *MemoryStore) ListEligibleTasks(userID string) ([]models.Task, error) {
	tasks, _ := s.ListTasks(userID)
	var eligible []models.Task
	for _, t := range tasks {
		if t.Status == models.TaskStatusTodo {
			eligible = append(eligible, t)
		}
	}
	return eligible, nil
}

func (s *MemoryStore) UpdateTask(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func (s *MemoryStore) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) SaveProposal(p models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, prior := range s.proposals {
		if prior.UserID == p.UserID && prior.Date == p.Date && prior.SupersededAt == nil {
			ts := now
			prior.SupersededAt = &ts
		}
	}

	stored := p
	stored.Blocks = append([]models.PlannedBlock(nil), p.Blocks...)
	s.proposals[p.ID] = &stored
	for i := range stored.Blocks {
		b := stored.Blocks[i]
		b.Date = p.Date
		s.blocks[b.ID] = &b
	}
	return nil
}

func (s *MemoryStore) assembleProposal(p *models.Proposal) models.Proposal {
	out := *p
	out.Blocks = make([]models.PlannedBlock, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if live, ok := s.blocks[b.ID]; ok {
			out.Blocks = append(out.Blocks, *live)
		}
	}
	return out
}

func (s *MemoryStore) GetProposal(id string) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return models.Proposal{}, fmt.Errorf("proposal %s: %w", id, ErrNotFound)
	}
	return s.assembleProposal(p), nil
}

func (s *MemoryStore) GetLatestProposal(userID, date string) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Proposal
	for _, p := range s.proposals {
		if p.UserID != userID || p.Date != date {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return models.Proposal{}, fmt.Errorf("proposal for %s/%s: %w", userID, date, ErrNotFound)
	}
	return s.assembleProposal(latest), nil
}

func (s *MemoryStore) TransitionBlock(blockID string, from, to models.BlockState, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockID]
	if !ok {
		return false, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	if b.State != from {
		return false, nil
	}
	b.State = to
	b.Reason = reason
	return true, nil
}

func (s *MemoryStore) SetBlockEvent(blockID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockID]
	if !ok {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	b.CalendarEventID = eventID
	return nil
}

func (s *MemoryStore) GetBlock(blockID string) (models.PlannedBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockID]
	if !ok {
		return models.PlannedBlock{}, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	return *b, nil
}

func (s *MemoryStore) ListBlocksForDay(userID, date string) ([]models.PlannedBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blocks []models.PlannedBlock
	for _, b := range s.blocks {
		if b.UserID == userID && b.Date == date {
			blocks = append(blocks, *b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start.Before(blocks[j].Start) })
	return blocks, nil
}

func (s *MemoryStore) ListBlocksForTask(taskID string) ([]models.PlannedBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blocks []models.PlannedBlock
	for _, b := range s.blocks {
		if b.TaskID == taskID {
			blocks = append(blocks, *b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start.Before(blocks[j].Start) })
	return blocks, nil
}

func (s *MemoryStore) AddSession(sess models.ExecutionSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := sess
	s.sessions[sess.ID] = &stored
	return nil
}

func (s *MemoryStore) CloseSession(id string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.End != nil {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	sess.End = &end
	return nil
}

func (s *MemoryStore) GetActiveSession(userID string) (models.ExecutionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.End == nil {
			return *sess, nil
		}
	}
	return models.ExecutionSession{}, fmt.Errorf("active session for %s: %w", userID, ErrNotFound)
}

func (s *MemoryStore) ListSessionsForTask(userID, taskID string) ([]models.ExecutionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []models.ExecutionSession
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.TaskID == taskID {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Start.Before(sessions[j].Start) })
	return sessions, nil
}

func (s *MemoryStore) ListSessionsForDay(userID, date string) ([]models.ExecutionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []models.ExecutionSession
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Start.UTC().Format("2006-01-02") == date {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Start.Before(sessions[j].Start) })
	return sessions, nil
}

func (s *MemoryStore) AddBusyInterval(userID, date string, b models.BusyInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "|" + date
	s.busy[key] = append(s.busy[key], b)
	return nil
}

func (s *MemoryStore) ListBusyIntervals(userID, date string) ([]models.BusyInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	busy := append([]models.BusyInterval(nil), s.busy[userID+"|"+date]...)
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

func (s *MemoryStore) AddCalendarEvent(id, userID, summary, description string, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = userID
	return nil
}

func (s *MemoryStore) DeleteCalendarEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("calendar event %s: %w", id, ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

func (s *MemoryStore) GetConfigPath() string {
	return ":memory:"
}
