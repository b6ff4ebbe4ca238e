package scheduler

import (
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// Placement is the outcome of packing scored tasks into free intervals.
// Blocks and Unplaced together partition the eligible input tasks
// exactly. Block ids are assigned by the caller; placement itself is
// deterministic for identical input.
type Placement struct {
	Blocks   []models.PlannedBlock
	Unplaced []models.UnplacedTask
}

// Place greedily assigns each task's full duration to the earliest free
// interval with enough remaining capacity, consuming capacity as it
// goes. Tasks are visited in the given order (descending score). A task
// is never split across intervals. Tasks not in todo status are
// excluded entirely.
func Place(scored []models.ScoredTask, free []models.FreeInterval, now time.Time) Placement {
	type slot struct {
		cursor time.Time
		end    time.Time
	}
	slots := make([]slot, len(free))
	for i, f := range free {
		slots[i] = slot{cursor: f.Start, end: f.End}
	}

	result := Placement{
		Blocks:   []models.PlannedBlock{},
		Unplaced: []models.UnplacedTask{},
	}

	for _, st := range scored {
		task := st.Task
		if task.Status != models.TaskStatusTodo {
			continue
		}

		need := time.Duration(task.EstimateMin) * time.Minute
		placed := false
		for i := range slots {
			if slots[i].end.Sub(slots[i].cursor) < need {
				continue
			}
			start := slots[i].cursor
			end := start.Add(need)
			slots[i].cursor = end
			result.Blocks = append(result.Blocks, models.PlannedBlock{
				UserID: task.UserID,
				TaskID: task.ID,
				Start:  start,
				End:    end,
				State:  models.BlockProposed,
				Reason: PlacementReason(task, now),
			})
			placed = true
			break
		}
		if placed {
			continue
		}

		// Distinguish fragmentation from genuine shortage: if the
		// total remaining free time would cover the task, only the
		// slot sizes are the problem.
		var remaining time.Duration
		for i := range slots {
			remaining += slots[i].end.Sub(slots[i].cursor)
		}
		reason := models.ReasonNoCapacity
		if remaining >= need {
			reason = models.ReasonTaskTooLong
		}
		result.Unplaced = append(result.Unplaced, models.UnplacedTask{
			TaskID: task.ID,
			Reason: reason,
		})
	}

	return result
}
