package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

var (
	insightsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	insightsLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	insightsWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type InsightsCmd struct {
	Day  InsightsDayCmd  `cmd:"" help:"Show insights for one day." default:"1"`
	Week InsightsWeekCmd `cmd:"" help:"Show insights for a seven-day range."`
}

type InsightsDayCmd struct {
	Date string `arg:"" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *InsightsDayCmd) Run(ctx *Context) error {
	date, err := ResolveDate(c.Date)
	if err != nil {
		return err
	}
	day, err := ctx.Insights.Daily(ctx.User, date)
	if err != nil {
		return err
	}

	fmt.Println(insightsHeaderStyle.Render("Insights for " + date))
	printMinutes(day.Minutes)
	printBias(day.EstimationBias)
	if len(day.Slipped) > 0 {
		fmt.Println(insightsWarnStyle.Render("  Slipped:"))
		for _, s := range day.Slipped {
			fmt.Printf("    %s (%s)\n", s.Title, s.TaskID)
		}
	}
	return nil
}

type InsightsWeekCmd struct {
	Start string `arg:"" help:"Week start date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *InsightsWeekCmd) Run(ctx *Context) error {
	start, err := ResolveDate(c.Start)
	if err != nil {
		return err
	}
	week, err := ctx.Insights.Weekly(ctx.User, start)
	if err != nil {
		return err
	}

	fmt.Println(insightsHeaderStyle.Render("Insights for week of " + start))
	printMinutes(week.Minutes)
	printBias(week.EstimationBias)
	for _, day := range week.Days {
		if day.Minutes == (models.MinuteTotals{}) && len(day.Slipped) == 0 {
			continue
		}
		fmt.Printf("  %s: planned %s, executed %s, %d slipped\n",
			day.Date, FormatMinutes(day.Minutes.Planned), FormatMinutes(day.Minutes.Executed), len(day.Slipped))
	}
	return nil
}

func printMinutes(m models.MinuteTotals) {
	fmt.Printf("  %s%s\n", insightsLabelStyle.Render("planned"), FormatMinutes(m.Planned))
	fmt.Printf("  %s%s\n", insightsLabelStyle.Render("confirmed"), FormatMinutes(m.Confirmed))
	fmt.Printf("  %s%s\n", insightsLabelStyle.Render("executed"), FormatMinutes(m.Executed))
	fmt.Printf("  %s%s\n", insightsLabelStyle.Render("calendar busy"), FormatMinutes(m.CalendarBusy))
}

func printBias(bias float64) {
	switch {
	case bias > 0:
		fmt.Printf("  %s+%.0f%% (underestimating)\n", insightsLabelStyle.Render("bias"), bias*100)
	case bias < 0:
		fmt.Printf("  %s%.0f%% (overestimating)\n", insightsLabelStyle.Render("bias"), bias*100)
	default:
		fmt.Printf("  %s0%%\n", insightsLabelStyle.Render("bias"))
	}
}
