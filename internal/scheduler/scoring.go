package scheduler

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// Weights is the scoring policy: per-tier base scores plus a due-date
// component. The due-date component is bounded below the gap between
// tiers so priority always dominates.
type Weights struct {
	PriorityLow  float64 `yaml:"priority_low"`
	PriorityMed  float64 `yaml:"priority_med"`
	PriorityHigh float64 `yaml:"priority_high"`

	// OverdueBoost is added when the due date has passed. It must stay
	// above DueMaxBoost so overdue tasks score highest within a tier.
	OverdueBoost float64 `yaml:"overdue_boost"`
	// DueMaxBoost is the boost for a task due today, decaying linearly
	// to zero at HorizonDays out.
	DueMaxBoost float64 `yaml:"due_max_boost"`
	HorizonDays int     `yaml:"horizon_days"`
}

func DefaultWeights() Weights {
	return Weights{
		PriorityLow:  100,
		PriorityMed:  200,
		PriorityHigh: 300,
		OverdueBoost: 90,
		DueMaxBoost:  80,
		HorizonDays:  7,
	}
}

// LoadWeights reads a scoring policy from a YAML file, filling any
// omitted field from the defaults.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("failed to read weights file: %w", err)
	}
	w := DefaultWeights()
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("failed to parse weights file: %w", err)
	}
	return w, nil
}

// Score assigns the task its urgency score for the given instant.
// Higher scores schedule earlier. Within a priority tier, overdue tasks
// score highest, nearer due dates score higher, and tasks with no due
// date score lowest.
func (w Weights) Score(task models.Task, now time.Time) float64 {
	var base float64
	switch task.Priority {
	case models.PriorityHigh:
		base = w.PriorityHigh
	case models.PriorityMed:
		base = w.PriorityMed
	default:
		base = w.PriorityLow
	}

	if task.DueDate == "" {
		return base
	}
	due, err := time.ParseInLocation(constants.DateFormat, task.DueDate, now.Location())
	if err != nil {
		return base
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daysUntil := int(due.Sub(today).Hours() / 24)
	if daysUntil < 0 {
		return base + w.OverdueBoost
	}
	horizon := w.HorizonDays
	if horizon <= 0 {
		horizon = 1
	}
	boost := w.DueMaxBoost * (1 - float64(daysUntil)/float64(horizon))
	if boost < 0 {
		boost = 0
	}
	return base + boost
}

// ScoreTasks scores every task and returns them in scheduling order:
// descending score, ties broken by ascending task id so repeated calls
// on unchanged input produce an identical ordering.
func (w Weights) ScoreTasks(tasks []models.Task, now time.Time) []models.ScoredTask {
	scored := make([]models.ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		scored = append(scored, models.ScoredTask{Task: t, Score: w.Score(t, now)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Task.ID < scored[j].Task.ID
	})
	return scored
}

// PlacementReason builds the human-readable note attached to a block,
// e.g. "high priority, due today".
func PlacementReason(task models.Task, now time.Time) string {
	reason := string(task.Priority) + " priority"
	if task.DueDate == "" {
		return reason
	}
	today := now.Format(constants.DateFormat)
	switch {
	case task.DueDate < today:
		return reason + ", overdue"
	case task.DueDate == today:
		return reason + ", due today"
	default:
		return reason + ", due " + task.DueDate
	}
}
