package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

type TaskAddCmd struct {
	Title    string `arg:"" help:"Task title."`
	Estimate int    `short:"e" help:"Estimated duration in minutes." required:""`
	Priority string `short:"p" help:"Priority (low|med|high)." default:"med" enum:"low,med,high"`
	Due      string `short:"d" help:"Due date (YYYY-MM-DD)."`
}

func (c *TaskAddCmd) Validate() error {
	if c.Estimate <= 0 {
		return fmt.Errorf("estimate must be greater than zero")
	}
	if c.Due != "" {
		if _, err := time.Parse(constants.DateFormat, c.Due); err != nil {
			return fmt.Errorf("invalid due date %q, use YYYY-MM-DD", c.Due)
		}
	}
	return nil
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	task := models.Task{
		ID:          uuid.NewString(),
		UserID:      ctx.User,
		Title:       c.Title,
		Priority:    models.Priority(c.Priority),
		EstimateMin: c.Estimate,
		DueDate:     c.Due,
		Status:      models.TaskStatusTodo,
		CreatedAt:   time.Now(),
	}
	if err := ctx.Store.AddTask(task); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	fmt.Printf("Added %s (%s, %s priority)\n", task.Title, FormatMinutes(task.EstimateMin), task.Priority)
	fmt.Printf("  id: %s\n", task.ID)
	return nil
}

type TaskListCmd struct {
	All bool `help:"Include done tasks."`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	tasks, err := ctx.Store.ListTasks(ctx.User)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	fmt.Println("Tasks:")
	for _, task := range tasks {
		if !c.All && task.Status == models.TaskStatusDone {
			continue
		}
		due := ""
		if task.DueDate != "" {
			due = fmt.Sprintf(", due %s", task.DueDate)
		}
		fmt.Printf("  [%s] %s - %s (%s priority%s)\n",
			task.Status, task.Title, FormatMinutes(task.EstimateMin), task.Priority, due)
		fmt.Printf("      id: %s\n", task.ID)
	}
	return nil
}

type TaskDeleteCmd struct {
	TaskID string `arg:"" help:"Task to delete."`
}

func (c *TaskDeleteCmd) Run(ctx *Context) error {
	// Release the task's blocks and calendar events before the row goes.
	if err := ctx.Planner.ReleaseTask(context.Background(), ctx.User, c.TaskID); err != nil {
		return err
	}
	if err := ctx.Store.DeleteTask(c.TaskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	fmt.Printf("Deleted %s\n", c.TaskID)
	return nil
}
