package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/calendar"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/cli"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/insights"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/keyring"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/logger"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/planner"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/scheduler"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
	"github.com/ashton-edakk/AI-Executive-Assistant/internal/tracker"
)

var CLI struct {
	Version kong.VersionFlag
	DB      string `help:"SQLite database path. Ignored when a postgres connection string is stored via 'remote set'." type:"path" default:"~/.config/assistant/assistant.db"`
	User    string `help:"User the commands act for." hidden:""`
	Debug   bool   `help:"Enable debug logging."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize assistant storage."`
	Plan     cli.PlanCmd     `cmd:"" help:"Propose and confirm a day plan." default:"1"`
	Day      cli.DayCmd      `cmd:"" help:"Show the latest plan for a date."`
	Start    cli.StartCmd    `cmd:"" help:"Start tracking work on a task."`
	Stop     cli.StopCmd     `cmd:"" help:"Stop the active tracking session."`
	Done     cli.DoneCmd     `cmd:"" help:"Mark a task done and settle actual minutes."`
	Insights cli.InsightsCmd `cmd:"" help:"Show planning and execution insights."`
	Task     struct {
		Add    cli.TaskAddCmd    `cmd:"" help:"Add a new task."`
		List   cli.TaskListCmd   `cmd:"" help:"List tasks."`
		Delete cli.TaskDeleteCmd `cmd:"" help:"Delete a task and release its blocks."`
	} `cmd:"" help:"Manage tasks."`
	Busy struct {
		Add cli.BusyAddCmd `cmd:"" help:"Record an external calendar commitment."`
	} `cmd:"" help:"Manage calendar busy time."`
	Remote struct {
		Set    cli.RemoteSetCmd    `cmd:"" help:"Store a postgres connection string in the OS keyring."`
		Clear  cli.RemoteClearCmd  `cmd:"" help:"Remove the stored connection string."`
		Status cli.RemoteStatusCmd `cmd:"" help:"Show which backend is in use."`
	} `cmd:"" help:"Manage the remote storage backend."`
	Weights cli.WeightsCmd `cmd:"" help:"Show the effective scoring weights."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Day planning and execution tracking from the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": "v0.1.0"},
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: filepath.Dir(CLI.DB)}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	// A DSN in the keyring selects the postgres backend, otherwise the
	// local sqlite file is used.
	var store storage.Provider
	if dsn, err := keyring.GetConnectionString(); err == nil {
		store = storage.NewPostgresStore(dsn)
	} else {
		if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("keyring unavailable, using sqlite", "error", err)
		}
		store = storage.NewSQLiteStore(CLI.DB)
	}

	// Commands other than init and remote need the store opened.
	cmd := ""
	if ctx.Selected() != nil {
		cmd = ctx.Selected().Name
	}
	if cmd != "init" && cmd != "set" && cmd != "clear" && cmd != "status" {
		if err := store.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	if CLI.User == "" {
		CLI.User = constants.DefaultUser
	}

	cal := calendar.NewLocalProvider(store)
	appCtx := &cli.Context{
		Store:    store,
		Calendar: cal,
		Planner:  planner.New(store, cal, scheduler.DefaultWeights()),
		Tracker:  tracker.New(store),
		Insights: insights.New(store),
		User:     CLI.User,
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
