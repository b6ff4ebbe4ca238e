package models

// SlippedTask is a task that had a confirmed block whose time passed
// with no recorded work against it.
type SlippedTask struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
}

// MinuteTotals groups the four per-day minute aggregates.
type MinuteTotals struct {
	Planned      int `json:"planned"`
	Confirmed    int `json:"confirmed"`
	Executed     int `json:"executed"`
	CalendarBusy int `json:"calendar_busy"`
}

// DailyInsights is derived on read, never persisted. EstimationBias is
// positive when the user underestimates duration (actual > estimate).
type DailyInsights struct {
	Date           string        `json:"date"`
	Minutes        MinuteTotals  `json:"minutes"`
	Slipped        []SlippedTask `json:"slipped"`
	EstimationBias float64       `json:"estimation_bias"`
}

// WeeklyInsights aggregates seven consecutive days starting at WeekStart.
type WeeklyInsights struct {
	WeekStart      string          `json:"week_start"`
	Days           []DailyInsights `json:"days"`
	Minutes        MinuteTotals    `json:"minutes"`
	EstimationBias float64         `json:"estimation_bias"`
}
