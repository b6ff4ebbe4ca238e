package cli

import (
	"fmt"
	"time"
)

type StartCmd struct {
	TaskID string `arg:"" help:"Task to start tracking."`
}

func (c *StartCmd) Run(ctx *Context) error {
	session, err := ctx.Tracker.Start(ctx.User, c.TaskID)
	if err != nil {
		return err
	}
	fmt.Printf("Tracking %s (started %s)\n", c.TaskID, session.Start.Local().Format("15:04"))
	return nil
}

type StopCmd struct{}

func (c *StopCmd) Run(ctx *Context) error {
	session, err := ctx.Tracker.Stop(ctx.User)
	if err != nil {
		return err
	}
	fmt.Printf("Stopped %s after %s\n", session.TaskID, FormatMinutes(session.DurationMin(time.Now())))
	return nil
}

type DoneCmd struct {
	TaskID string `arg:"" help:"Task to mark done."`
}

func (c *DoneCmd) Run(ctx *Context) error {
	task, err := ctx.Tracker.Done(ctx.User, c.TaskID)
	if err != nil {
		return err
	}
	fmt.Printf("Done: %s (estimated %s, actual %s)\n",
		task.Title, FormatMinutes(task.EstimateMin), FormatMinutes(task.ActualMin))
	return nil
}
