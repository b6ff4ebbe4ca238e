package cli

import (
	"errors"
	"fmt"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/calendar"
)

// BusyAddCmd records an external calendar commitment in the local
// calendar tables, where the next propose call will see it. Only the
// built-in local provider supports writes from here; a hosted calendar
// owns its own busy time.
type BusyAddCmd struct {
	Date   string `arg:"" help:"Date (YYYY-MM-DD or 'today')."`
	Start  string `arg:"" help:"Start time (HH:MM)."`
	End    string `arg:"" help:"End time (HH:MM)."`
	Source string `short:"s" help:"Label for where the commitment comes from." default:"manual"`
}

func (c *BusyAddCmd) Run(ctx *Context) error {
	local, ok := ctx.Calendar.(*calendar.LocalProvider)
	if !ok {
		return errors.New("busy add is only supported with the built-in local calendar")
	}

	date, err := ResolveDate(c.Date)
	if err != nil {
		return err
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	loc := settings.Location()

	start, err := ParseClockOnDate(date, c.Start, loc)
	if err != nil {
		return err
	}
	end, err := ParseClockOnDate(date, c.End, loc)
	if err != nil {
		return err
	}

	if err := local.AddBusy(ctx.User, date, start, end, c.Source); err != nil {
		return err
	}
	fmt.Printf("Marked %s %s-%s busy (%s)\n", date, c.Start, c.End, c.Source)
	return nil
}
