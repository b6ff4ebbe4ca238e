package models

import "time"

type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityMed  Priority = "med"
	PriorityHigh Priority = "high"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Task is a backlog item eligible for day planning. DueDate is a
// YYYY-MM-DD calendar date; empty means no deadline.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Priority    Priority   `json:"priority"`
	EstimateMin int        `json:"estimate_min"`
	DueDate     string     `json:"due_date,omitempty"`
	Status      TaskStatus `json:"status"`
	ActualMin   int        `json:"actual_min"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ScoredTask pairs a task with its urgency score for one planning day.
// Transient, recomputed on every propose call.
type ScoredTask struct {
	Task  Task
	Score float64
}
