package models

import "time"

// BusyInterval is a span of external calendar time, snapshotted at
// proposal time and immutable afterwards.
type BusyInterval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Source string    `json:"source"`
}

func (b BusyInterval) Minutes() int {
	return int(b.End.Sub(b.Start).Minutes())
}

// FreeInterval is a derived span of unclaimed working-hours time. Never
// persisted; recomputed on every propose call.
type FreeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (f FreeInterval) Minutes() int {
	return int(f.End.Sub(f.Start).Minutes())
}

type BlockState string

const (
	BlockProposed  BlockState = "proposed"
	BlockConfirmed BlockState = "confirmed"
	BlockSkipped   BlockState = "skipped"
)

// Skip/confirm reasons reported by the planner.
const (
	ReasonAlreadyConfirmed = "already_confirmed"
	ReasonNotAccepted      = "not_accepted"
	ReasonTaskDeleted      = "task_deleted"
)

// Unplaceable reasons reported by placement.
const (
	ReasonNoCapacity  = "no_capacity"
	ReasonTaskTooLong = "task_too_long_for_any_slot"
)

// PlannedBlock is one contiguous scheduled slot for one task. It is
// created in the proposed state and only transitions to confirmed or
// skipped through the planner's confirm path. A confirmed block maps
// 1:1 to an external calendar event.
type PlannedBlock struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Date            string     `json:"date"`
	TaskID          string     `json:"task_id"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	State           BlockState `json:"state"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}

func (b PlannedBlock) Minutes() int {
	return int(b.End.Sub(b.Start).Minutes())
}

// UnplacedTask records why a task got no block in a proposal.
type UnplacedTask struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// Proposal is an immutable point-in-time schedule for one user/day,
// pending acceptance. A new propose call for the same user/day creates
// a new proposal and supersedes this one.
type Proposal struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Date         string         `json:"date"`
	CreatedAt    time.Time      `json:"created_at"`
	SupersededAt *time.Time     `json:"superseded_at,omitempty"`
	Blocks       []PlannedBlock `json:"blocks"`
	Unplaced     []UnplacedTask `json:"unplaced"`
	Busy         []BusyInterval `json:"busy"`
}
