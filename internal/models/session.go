package models

import "time"

// ExecutionSession is one stretch of tracked work against a task.
// End is nil while the session is active; at most one session per user
// may be active at any instant.
type ExecutionSession struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	TaskID string     `json:"task_id"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
}

func (s ExecutionSession) Active() bool {
	return s.End == nil
}

// DurationMin returns the elapsed minutes of the session, measuring an
// active session up to now.
func (s ExecutionSession) DurationMin(now time.Time) int {
	end := now
	if s.End != nil {
		end = *s.End
	}
	if end.Before(s.Start) {
		return 0
	}
	return int(end.Sub(s.Start).Minutes())
}
