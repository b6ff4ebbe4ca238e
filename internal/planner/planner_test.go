package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/calendar"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/scheduler"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
)

// fakeCalendar counts event creations and can fail selectively, to
// exercise the per-block failure and idempotence contracts.
type fakeCalendar struct {
	mu      sync.Mutex
	busy    []models.BusyInterval
	created map[string]calendar.Event // eventID -> event
	deleted []string
	// failStarts holds block start times whose event creation fails.
	failStarts map[time.Time]error
	nextID     int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		created:    make(map[string]calendar.Event),
		failStarts: make(map[time.Time]error),
	}
}

func (f *fakeCalendar) ListBusyIntervals(ctx context.Context, userID, date string) ([]models.BusyInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.BusyInterval(nil), f.busy...), nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, userID string, ev calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failStarts[ev.Start]; ok {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.created[id] = ev
	return id, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, userID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.created[eventID]; !ok {
		return fmt.Errorf("event %s: %w", eventID, storage.ErrNotFound)
	}
	delete(f.created, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var plannerNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *storage.MemoryStore, *fakeCalendar) {
	t.Helper()
	store := storage.NewMemoryStore()
	settings := storage.DefaultSettings()
	settings.Timezone = "UTC"
	settings.BufferMin = 0
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	cal := newFakeCalendar()
	svc := New(store, cal, scheduler.DefaultWeights())
	svc.SetClock(func() time.Time { return plannerNow })
	return svc, store, cal
}

func addTask(t *testing.T, store *storage.MemoryStore, id string, prio models.Priority, estimate int, due string) {
	t.Helper()
	err := store.AddTask(models.Task{
		ID:          id,
		UserID:      "u1",
		Title:       "Task " + id,
		Priority:    prio,
		EstimateMin: estimate,
		DueDate:     due,
		Status:      models.TaskStatusTodo,
		CreatedAt:   plannerNow,
	})
	if err != nil {
		t.Fatalf("failed to add task: %v", err)
	}
}

func TestPropose_BuildsProposal(t *testing.T) {
	svc, store, cal := newTestService(t)
	addTask(t, store, "t1", models.PriorityHigh, 90, "2026-03-02")
	addTask(t, store, "t2", models.PriorityLow, 60, "")
	cal.busy = []models.BusyInterval{
		{Start: plannerNow.Add(4 * time.Hour), End: plannerNow.Add(5 * time.Hour), Source: "calendar"}, // 12:00-13:00
	}

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	if p.ID == "" || p.UserID != "u1" || p.Date != "2026-03-02" {
		t.Errorf("unexpected proposal header: %+v", p)
	}
	if len(p.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d (unplaced %+v)", len(p.Blocks), p.Unplaced)
	}
	for _, b := range p.Blocks {
		if b.ID == "" || b.State != models.BlockProposed {
			t.Errorf("block not initialized as proposed with id: %+v", b)
		}
		if b.Start.Before(plannerNow.Add(time.Hour)) { // before 09:00
			t.Errorf("block starts before working hours: %+v", b)
		}
	}
	if len(p.Busy) != 1 {
		t.Errorf("expected busy snapshot persisted, got %+v", p.Busy)
	}

	// The proposal is retrievable by id for the confirm call.
	stored, err := store.GetProposal(p.ID)
	if err != nil {
		t.Fatalf("proposal not retrievable: %v", err)
	}
	if len(stored.Blocks) != 2 {
		t.Errorf("stored proposal lost blocks: %+v", stored)
	}
}

func TestPropose_SupersedesPriorProposal(t *testing.T) {
	svc, store, _ := newTestService(t)
	addTask(t, store, "t1", models.PriorityMed, 30, "")

	first, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("first Propose failed: %v", err)
	}
	second, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("second Propose failed: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected a fresh proposal id")
	}

	// The superseded id is no longer confirmable.
	_, err = svc.Confirm(context.Background(), "u1", first.ID, []string{first.Blocks[0].ID})
	if !errors.Is(err, ErrStaleProposal) {
		t.Errorf("expected ErrStaleProposal for superseded id, got %v", err)
	}
}

func TestConfirm_CreatesEventsAndSkipsDeclined(t *testing.T) {
	svc, store, cal := newTestService(t)
	addTask(t, store, "t1", models.PriorityHigh, 60, "2026-03-02")
	addTask(t, store, "t2", models.PriorityLow, 30, "")

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if len(p.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(p.Blocks))
	}

	res, err := svc.Confirm(context.Background(), "u1", p.ID, []string{p.Blocks[0].ID})
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if len(res.Created) != 1 || res.Created[0].ID != p.Blocks[0].ID {
		t.Fatalf("expected one created block, got %+v", res.Created)
	}
	if res.Created[0].CalendarEventID == "" {
		t.Error("created block missing calendar event id")
	}
	if cal.eventCount() != 1 {
		t.Errorf("expected 1 calendar event, got %d", cal.eventCount())
	}

	declined, err := store.GetBlock(p.Blocks[1].ID)
	if err != nil {
		t.Fatalf("failed to load declined block: %v", err)
	}
	if declined.State != models.BlockSkipped || declined.Reason != models.ReasonNotAccepted {
		t.Errorf("expected declined block skipped/not_accepted, got %+v", declined)
	}
}

func TestConfirm_Idempotent(t *testing.T) {
	svc, store, cal := newTestService(t)
	addTask(t, store, "t1", models.PriorityHigh, 60, "")

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	accept := []string{p.Blocks[0].ID}

	if _, err := svc.Confirm(context.Background(), "u1", p.ID, accept); err != nil {
		t.Fatalf("first Confirm failed: %v", err)
	}
	res, err := svc.Confirm(context.Background(), "u1", p.ID, accept)
	if err != nil {
		t.Fatalf("second Confirm failed: %v", err)
	}

	if len(res.Created) != 0 {
		t.Errorf("second confirm must create nothing, got %+v", res.Created)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != models.ReasonAlreadyConfirmed {
		t.Errorf("expected already_confirmed skip, got %+v", res.Skipped)
	}
	if cal.eventCount() != 1 {
		t.Errorf("expected exactly 1 calendar event after double confirm, got %d", cal.eventCount())
	}
}

func TestConfirm_PartialFailureAndRetry(t *testing.T) {
	svc, store, cal := newTestService(t)
	addTask(t, store, "t1", models.PriorityHigh, 60, "2026-03-02")
	addTask(t, store, "t2", models.PriorityMed, 30, "")

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if len(p.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(p.Blocks))
	}

	// Fail creation for the second block only.
	cal.failStarts[p.Blocks[1].Start] = fmt.Errorf("%w: request timed out", calendar.ErrUnavailable)

	accept := []string{p.Blocks[0].ID, p.Blocks[1].ID}
	res, err := svc.Confirm(context.Background(), "u1", p.ID, accept)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if len(res.Created) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("expected 1 created + 1 skipped, got %+v", res)
	}
	if res.Skipped[0].BlockID != p.Blocks[1].ID {
		t.Errorf("wrong block skipped: %+v", res.Skipped)
	}

	// The failed block reverted to proposed, so the retry picks up
	// exactly the unfinished work.
	failed, _ := store.GetBlock(p.Blocks[1].ID)
	if failed.State != models.BlockProposed {
		t.Errorf("expected failed block back in proposed, got %s", failed.State)
	}

	delete(cal.failStarts, p.Blocks[1].Start)
	res, err = svc.Confirm(context.Background(), "u1", p.ID, accept)
	if err != nil {
		t.Fatalf("retry Confirm failed: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0].ID != p.Blocks[1].ID {
		t.Errorf("retry should create only the failed block, got %+v", res.Created)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != models.ReasonAlreadyConfirmed {
		t.Errorf("previously created block should skip as already_confirmed: %+v", res.Skipped)
	}
	if cal.eventCount() != 2 {
		t.Errorf("expected 2 events total, got %d", cal.eventCount())
	}
}

func TestConfirm_ConcurrentCallsCreateOneEventPerBlock(t *testing.T) {
	svc, store, cal := newTestService(t)
	addTask(t, store, "t1", models.PriorityHigh, 60, "")
	addTask(t, store, "t2", models.PriorityMed, 45, "")

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	accept := make([]string, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		accept = append(accept, b.ID)
	}

	const racers = 6
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Confirm(context.Background(), "u1", p.ID, accept); err != nil {
				t.Errorf("concurrent Confirm failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if cal.eventCount() != len(p.Blocks) {
		t.Errorf("expected %d events across all racers, got %d", len(p.Blocks), cal.eventCount())
	}
}

func TestConfirm_UnknownOrForeignProposal(t *testing.T) {
	svc, store, _ := newTestService(t)
	addTask(t, store, "t1", models.PriorityMed, 30, "")

	if _, err := svc.Confirm(context.Background(), "u1", "no-such-id", nil); !errors.Is(err, ErrProposalNotFound) {
		t.Errorf("expected ErrProposalNotFound, got %v", err)
	}

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), "intruder", p.ID, nil); !errors.Is(err, ErrProposalNotFound) {
		t.Errorf("expected ErrProposalNotFound for foreign user, got %v", err)
	}
}

func TestConfirm_ExpiredProposal(t *testing.T) {
	svc, store, _ := newTestService(t)
	addTask(t, store, "t1", models.PriorityMed, 30, "")

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	settings, _ := store.GetSettings()
	svc.SetClock(func() time.Time {
		return plannerNow.Add(time.Duration(settings.ProposalTTLMin+1) * time.Minute)
	})

	if _, err := svc.Confirm(context.Background(), "u1", p.ID, []string{p.Blocks[0].ID}); !errors.Is(err, ErrStaleProposal) {
		t.Errorf("expected ErrStaleProposal for expired proposal, got %v", err)
	}
}

func TestReleaseTask_CascadesEventDeletion(t *testing.T) {
	svc, store, cal := newTestService(t)
	addTask(t, store, "t1", models.PriorityHigh, 60, "")

	p, err := svc.Propose(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), "u1", p.ID, []string{p.Blocks[0].ID}); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if cal.eventCount() != 1 {
		t.Fatalf("expected 1 event before release, got %d", cal.eventCount())
	}

	if err := svc.ReleaseTask(context.Background(), "u1", "t1"); err != nil {
		t.Fatalf("ReleaseTask failed: %v", err)
	}

	if cal.eventCount() != 0 {
		t.Errorf("expected event deleted on release, got %d", cal.eventCount())
	}
	b, _ := store.GetBlock(p.Blocks[0].ID)
	if b.State != models.BlockSkipped || b.Reason != models.ReasonTaskDeleted {
		t.Errorf("expected block skipped/task_deleted, got %+v", b)
	}
}
