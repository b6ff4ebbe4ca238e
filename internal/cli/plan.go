package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/scheduler"
)

var (
	planHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	planTimeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	planDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	planWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type PlanCmd struct {
	Date    string `arg:"" help:"Date to plan (YYYY-MM-DD, 'today', or 'tomorrow')." default:"today"`
	Yes     bool   `short:"y" help:"Accept every proposed block without prompting."`
	Weights string `help:"Path to a YAML scoring weights file." type:"path"`
}

func (c *PlanCmd) Run(ctx *Context) error {
	date, err := ResolveDate(c.Date)
	if err != nil {
		return err
	}

	if c.Weights != "" {
		weights, err := scheduler.LoadWeights(c.Weights)
		if err != nil {
			return err
		}
		ctx.Planner.SetWeights(weights)
	}

	proposal, err := ctx.Planner.Propose(context.Background(), ctx.User, date)
	if err != nil {
		return err
	}

	fmt.Println(planHeaderStyle.Render(fmt.Sprintf("Proposed plan for %s", date)))
	if len(proposal.Blocks) == 0 && len(proposal.Unplaced) == 0 {
		fmt.Println(planDimStyle.Render("  nothing to schedule, add tasks first"))
		return nil
	}

	now := time.Now()
	for _, block := range proposal.Blocks {
		task, err := ctx.Store.GetTask(block.TaskID)
		if err != nil {
			fmt.Printf("  %s  (unknown task)\n", renderSpan(block.Start, block.End))
			continue
		}
		fmt.Printf("  %s  %s %s\n",
			renderSpan(block.Start, block.End),
			task.Title,
			planDimStyle.Render("("+scheduler.PlacementReason(task, now)+")"))
	}
	for _, u := range proposal.Unplaced {
		task, err := ctx.Store.GetTask(u.TaskID)
		title := u.TaskID
		if err == nil {
			title = task.Title
		}
		fmt.Printf("  %s %s %s\n",
			planWarnStyle.Render("unplaced:"), title, planDimStyle.Render("("+u.Reason+")"))
	}

	if len(proposal.Blocks) == 0 {
		return nil
	}

	accepted, err := c.pickBlocks(ctx, proposal)
	if err != nil {
		return err
	}
	if len(accepted) == 0 {
		fmt.Println("No blocks accepted.")
		return nil
	}

	result, err := ctx.Planner.Confirm(context.Background(), ctx.User, proposal.ID, accepted)
	if err != nil {
		return err
	}

	for _, block := range result.Created {
		fmt.Printf("  confirmed %s  (event %s)\n", renderSpan(block.Start, block.End), block.CalendarEventID)
	}
	for _, skip := range result.Skipped {
		if skip.Reason == models.ReasonNotAccepted {
			continue
		}
		fmt.Printf("  %s block %s: %s\n", planWarnStyle.Render("skipped"), skip.BlockID, skip.Reason)
	}
	return nil
}

// pickBlocks asks which proposed blocks to confirm. --yes accepts all.
func (c *PlanCmd) pickBlocks(ctx *Context, proposal models.Proposal) ([]string, error) {
	all := make([]string, 0, len(proposal.Blocks))
	for _, b := range proposal.Blocks {
		all = append(all, b.ID)
	}
	if c.Yes {
		return all, nil
	}

	opts := make([]huh.Option[string], 0, len(proposal.Blocks))
	for _, b := range proposal.Blocks {
		label := renderSpan(b.Start, b.End)
		if task, err := ctx.Store.GetTask(b.TaskID); err == nil {
			label += "  " + task.Title
		}
		opts = append(opts, huh.NewOption(label, b.ID).Selected(true))
	}

	var accepted []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Blocks to confirm").
			Options(opts...).
			Value(&accepted),
	))
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("confirm picker aborted: %w", err)
	}
	return accepted, nil
}

func renderSpan(start, end time.Time) string {
	return planTimeStyle.Render(fmt.Sprintf("%s-%s",
		start.Local().Format("15:04"), end.Local().Format("15:04")))
}
