package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

var scoringNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestScore_PriorityDominates(t *testing.T) {
	w := DefaultWeights()

	// A low-priority task overdue by a week must still score below a
	// high-priority task with no due date at all.
	lowOverdue := models.Task{ID: "a", Priority: models.PriorityLow, DueDate: "2026-02-23"}
	highNoDue := models.Task{ID: "b", Priority: models.PriorityHigh}

	if w.Score(lowOverdue, scoringNow) >= w.Score(highNoDue, scoringNow) {
		t.Error("expected priority tier to dominate due-date pressure")
	}
}

func TestScore_DueDateOrderingWithinTier(t *testing.T) {
	w := DefaultWeights()

	overdue := models.Task{ID: "a", Priority: models.PriorityMed, DueDate: "2026-03-01"}
	dueToday := models.Task{ID: "b", Priority: models.PriorityMed, DueDate: "2026-03-02"}
	dueLater := models.Task{ID: "c", Priority: models.PriorityMed, DueDate: "2026-03-05"}
	noDue := models.Task{ID: "d", Priority: models.PriorityMed}

	sOverdue := w.Score(overdue, scoringNow)
	sToday := w.Score(dueToday, scoringNow)
	sLater := w.Score(dueLater, scoringNow)
	sNone := w.Score(noDue, scoringNow)

	if !(sOverdue > sToday && sToday > sLater && sLater > sNone) {
		t.Errorf("expected overdue > due today > due later > no due date, got %v %v %v %v",
			sOverdue, sToday, sLater, sNone)
	}
}

func TestScoreTasks_DeterministicTieBreak(t *testing.T) {
	w := DefaultWeights()

	tasks := []models.Task{
		{ID: "zeta", Priority: models.PriorityMed},
		{ID: "alpha", Priority: models.PriorityMed},
		{ID: "mid", Priority: models.PriorityMed},
	}

	first := w.ScoreTasks(tasks, scoringNow)
	for i := 0; i < 10; i++ {
		again := w.ScoreTasks(tasks, scoringNow)
		for j := range first {
			if again[j].Task.ID != first[j].Task.ID {
				t.Fatalf("ordering not stable across calls: %v vs %v", first, again)
			}
		}
	}

	// Equal scores break ties by ascending task id.
	if first[0].Task.ID != "alpha" || first[1].Task.ID != "mid" || first[2].Task.ID != "zeta" {
		t.Errorf("expected id tie-break ordering alpha,mid,zeta, got %s,%s,%s",
			first[0].Task.ID, first[1].Task.ID, first[2].Task.ID)
	}
}

func TestScoreTasks_HigherScoreFirst(t *testing.T) {
	w := DefaultWeights()

	tasks := []models.Task{
		{ID: "low", Priority: models.PriorityLow},
		{ID: "high", Priority: models.PriorityHigh, DueDate: "2026-03-02"},
		{ID: "med", Priority: models.PriorityMed},
	}

	scored := w.ScoreTasks(tasks, scoringNow)
	if scored[0].Task.ID != "high" || scored[1].Task.ID != "med" || scored[2].Task.ID != "low" {
		t.Errorf("unexpected order: %s,%s,%s", scored[0].Task.ID, scored[1].Task.ID, scored[2].Task.ID)
	}
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	content := "priority_high: 500\noverdue_boost: 120\ndue_max_boost: 110\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write weights file: %v", err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}

	if w.PriorityHigh != 500 {
		t.Errorf("expected overridden priority_high 500, got %v", w.PriorityHigh)
	}
	if w.PriorityMed != DefaultWeights().PriorityMed {
		t.Errorf("expected omitted field to keep default, got %v", w.PriorityMed)
	}
	if w.OverdueBoost != 120 || w.DueMaxBoost != 110 {
		t.Errorf("unexpected boosts: %+v", w)
	}
}

func TestLoadWeights_MissingFile(t *testing.T) {
	if _, err := LoadWeights(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing weights file")
	}
}

func TestPlacementReason(t *testing.T) {
	tests := []struct {
		name     string
		task     models.Task
		expected string
	}{
		{
			name:     "no due date",
			task:     models.Task{Priority: models.PriorityLow},
			expected: "low priority",
		},
		{
			name:     "due today",
			task:     models.Task{Priority: models.PriorityHigh, DueDate: "2026-03-02"},
			expected: "high priority, due today",
		},
		{
			name:     "overdue",
			task:     models.Task{Priority: models.PriorityMed, DueDate: "2026-02-28"},
			expected: "med priority, overdue",
		},
		{
			name:     "due later",
			task:     models.Task{Priority: models.PriorityMed, DueDate: "2026-03-06"},
			expected: "med priority, due 2026-03-06",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlacementReason(tt.task, scoringNow); got != tt.expected {
				t.Errorf("PlacementReason = %q, want %q", got, tt.expected)
			}
		})
	}
}
