package cli

import (
	"fmt"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// DayCmd shows the latest proposal for a date with the current state of
// each block.
type DayCmd struct {
	Date string `arg:"" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *DayCmd) Run(ctx *Context) error {
	date, err := ResolveDate(c.Date)
	if err != nil {
		return err
	}
	proposal, err := ctx.Planner.Latest(ctx.User, date)
	if err != nil {
		return err
	}

	fmt.Println(planHeaderStyle.Render("Plan for " + date))
	if proposal.SupersededAt != nil {
		fmt.Println(planDimStyle.Render("  (superseded, run 'assistant plan' for a fresh one)"))
	}
	for _, block := range proposal.Blocks {
		title := block.TaskID
		if task, err := ctx.Store.GetTask(block.TaskID); err == nil {
			title = task.Title
		}
		state := string(block.State)
		if block.State == models.BlockSkipped && block.Reason != "" {
			state += ": " + block.Reason
		}
		fmt.Printf("  %s  %s  %s\n", renderSpan(block.Start, block.End), title, planDimStyle.Render("["+state+"]"))
	}
	for _, u := range proposal.Unplaced {
		title := u.TaskID
		if task, err := ctx.Store.GetTask(u.TaskID); err == nil {
			title = task.Title
		}
		fmt.Printf("  %s %s %s\n", planWarnStyle.Render("unplaced:"), title, planDimStyle.Render("("+u.Reason+")"))
	}
	return nil
}
