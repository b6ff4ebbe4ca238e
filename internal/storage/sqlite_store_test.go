package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

func setupTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testProposal(userID, date string, blockIDs ...string) models.Proposal {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	p := models.Proposal{
		ID:        "prop-" + userID + "-" + date,
		UserID:    userID,
		Date:      date,
		CreatedAt: created,
		Unplaced:  []models.UnplacedTask{{TaskID: "skipped-task", Reason: models.ReasonNoCapacity}},
		Busy: []models.BusyInterval{
			{Start: created.Add(4 * time.Hour), End: created.Add(5 * time.Hour), Source: "calendar"},
		},
	}
	for i, id := range blockIDs {
		start := created.Add(time.Duration(i+1) * time.Hour)
		p.Blocks = append(p.Blocks, models.PlannedBlock{
			ID:     id,
			UserID: userID,
			Date:   date,
			TaskID: "task-" + id,
			Start:  start,
			End:    start.Add(30 * time.Minute),
			State:  models.BlockProposed,
		})
	}
	return p
}

func TestSQLiteStore_TaskRoundTrip(t *testing.T) {
	store := setupTestSQLiteStore(t)

	task := models.Task{
		ID:          "task-1",
		UserID:      "u1",
		Title:       "Write report",
		Priority:    models.PriorityHigh,
		EstimateMin: 60,
		DueDate:     "2026-03-02",
		Status:      models.TaskStatusTodo,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	if err := store.AddTask(task); err != nil {
		t.Fatalf("failed to add task: %v", err)
	}

	got, err := store.GetTask(task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.Title != task.Title || got.Priority != task.Priority || got.DueDate != task.DueDate {
		t.Errorf("task round trip mismatch: %+v", got)
	}

	eligible, err := store.ListEligibleTasks("u1")
	if err != nil {
		t.Fatalf("failed to list eligible tasks: %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible task, got %d", len(eligible))
	}

	got.Status = models.TaskStatusDone
	now := time.Now().UTC().Truncate(time.Second)
	got.CompletedAt = &now
	if err := store.UpdateTask(got); err != nil {
		t.Fatalf("failed to update task: %v", err)
	}

	eligible, _ = store.ListEligibleTasks("u1")
	if len(eligible) != 0 {
		t.Errorf("done task must not be eligible, got %d", len(eligible))
	}

	if err := store.DeleteTask(task.ID); err != nil {
		t.Fatalf("failed to delete task: %v", err)
	}
	if _, err := store.GetTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStore_ProposalSupersession(t *testing.T) {
	store := setupTestSQLiteStore(t)

	first := testProposal("u1", "2026-03-02", "b1")
	if err := store.SaveProposal(first); err != nil {
		t.Fatalf("failed to save first proposal: %v", err)
	}

	second := testProposal("u1", "2026-03-02", "b2")
	second.ID = "prop-second"
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	if err := store.SaveProposal(second); err != nil {
		t.Fatalf("failed to save second proposal: %v", err)
	}

	got, err := store.GetProposal(first.ID)
	if err != nil {
		t.Fatalf("failed to get first proposal: %v", err)
	}
	if got.SupersededAt == nil {
		t.Error("expected first proposal to be superseded")
	}

	latest, err := store.GetLatestProposal("u1", "2026-03-02")
	if err != nil {
		t.Fatalf("failed to get latest proposal: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("expected latest proposal %s, got %s", second.ID, latest.ID)
	}
	if latest.SupersededAt != nil {
		t.Error("latest proposal must not be superseded")
	}
	if len(latest.Busy) != 1 || len(latest.Unplaced) != 1 {
		t.Errorf("snapshot fields lost in round trip: %+v", latest)
	}
}

func TestSQLiteStore_BlockCompareAndSet(t *testing.T) {
	store := setupTestSQLiteStore(t)

	p := testProposal("u1", "2026-03-02", "b1")
	if err := store.SaveProposal(p); err != nil {
		t.Fatalf("failed to save proposal: %v", err)
	}

	won, err := store.TransitionBlock("b1", models.BlockProposed, models.BlockConfirmed, "")
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if !won {
		t.Fatal("expected first transition to win")
	}

	// Second caller loses: the block is no longer proposed.
	won, err = store.TransitionBlock("b1", models.BlockProposed, models.BlockConfirmed, "")
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if won {
		t.Error("expected second transition to lose the race")
	}

	if _, err := store.TransitionBlock("missing", models.BlockProposed, models.BlockConfirmed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown block, got %v", err)
	}
}

func TestSQLiteStore_ConcurrentBlockTransitions(t *testing.T) {
	store := setupTestSQLiteStore(t)

	p := testProposal("u1", "2026-03-02", "b1")
	if err := store.SaveProposal(p); err != nil {
		t.Fatalf("failed to save proposal: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.TransitionBlock("b1", models.BlockProposed, models.BlockConfirmed, "")
			if err != nil {
				t.Errorf("transition failed: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winning transition, got %d", winners)
	}
}

func TestSQLiteStore_BlockEventAndQueries(t *testing.T) {
	store := setupTestSQLiteStore(t)

	p := testProposal("u1", "2026-03-02", "b1", "b2")
	if err := store.SaveProposal(p); err != nil {
		t.Fatalf("failed to save proposal: %v", err)
	}

	if err := store.SetBlockEvent("b1", "evt-9"); err != nil {
		t.Fatalf("failed to set event id: %v", err)
	}
	b, err := store.GetBlock("b1")
	if err != nil {
		t.Fatalf("failed to get block: %v", err)
	}
	if b.CalendarEventID != "evt-9" {
		t.Errorf("expected event id evt-9, got %q", b.CalendarEventID)
	}

	day, err := store.ListBlocksForDay("u1", "2026-03-02")
	if err != nil {
		t.Fatalf("failed to list day blocks: %v", err)
	}
	if len(day) != 2 {
		t.Errorf("expected 2 blocks for the day, got %d", len(day))
	}

	byTask, err := store.ListBlocksForTask("task-b2")
	if err != nil {
		t.Fatalf("failed to list task blocks: %v", err)
	}
	if len(byTask) != 1 || byTask[0].ID != "b2" {
		t.Errorf("unexpected task blocks: %+v", byTask)
	}
}

func TestSQLiteStore_SessionLifecycle(t *testing.T) {
	store := setupTestSQLiteStore(t)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sess := models.ExecutionSession{ID: "s1", UserID: "u1", TaskID: "t1", Start: start}
	if err := store.AddSession(sess); err != nil {
		t.Fatalf("failed to add session: %v", err)
	}

	active, err := store.GetActiveSession("u1")
	if err != nil {
		t.Fatalf("failed to get active session: %v", err)
	}
	if active.ID != "s1" || !active.Active() {
		t.Errorf("unexpected active session: %+v", active)
	}

	if err := store.CloseSession("s1", start.Add(25*time.Minute)); err != nil {
		t.Fatalf("failed to close session: %v", err)
	}
	if _, err := store.GetActiveSession("u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no active session after close, got %v", err)
	}

	// Closing twice fails: the conditional update only matches open
	// sessions.
	if err := store.CloseSession("s1", start.Add(30*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double close, got %v", err)
	}

	day, err := store.ListSessionsForDay("u1", "2026-03-02")
	if err != nil {
		t.Fatalf("failed to list day sessions: %v", err)
	}
	if len(day) != 1 || day[0].DurationMin(start.Add(time.Hour)) != 25 {
		t.Errorf("unexpected day sessions: %+v", day)
	}
}

func TestSQLiteStore_BusyIntervalsAndEvents(t *testing.T) {
	store := setupTestSQLiteStore(t)

	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	b := models.BusyInterval{Start: start, End: start.Add(time.Hour), Source: "calendar"}
	if err := store.AddBusyInterval("u1", "2026-03-02", b); err != nil {
		t.Fatalf("failed to add busy interval: %v", err)
	}

	busy, err := store.ListBusyIntervals("u1", "2026-03-02")
	if err != nil {
		t.Fatalf("failed to list busy intervals: %v", err)
	}
	if len(busy) != 1 || busy[0].Minutes() != 60 {
		t.Errorf("unexpected busy intervals: %+v", busy)
	}

	if err := store.AddCalendarEvent("evt-1", "u1", "Focus: report", "", start, start.Add(time.Hour)); err != nil {
		t.Fatalf("failed to add event: %v", err)
	}
	if err := store.DeleteCalendarEvent("evt-1"); err != nil {
		t.Fatalf("failed to delete event: %v", err)
	}
	if err := store.DeleteCalendarEvent("evt-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteStore_SettingsRoundTrip(t *testing.T) {
	store := setupTestSQLiteStore(t)

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("expected defaults after init: %v", err)
	}
	if settings.DayStart != "09:00" || settings.DayEnd != "17:00" {
		t.Errorf("unexpected default settings: %+v", settings)
	}

	settings.DayStart = "08:30"
	settings.BufferMin = 15
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	got, err := store.GetSettings()
	if err != nil {
		t.Fatalf("failed to reload settings: %v", err)
	}
	if got.DayStart != "08:30" || got.BufferMin != 15 {
		t.Errorf("settings round trip mismatch: %+v", got)
	}
}
