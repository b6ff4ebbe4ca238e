package storage

import (
	"errors"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Settings holds the planning configuration persisted alongside the data.
type Settings struct {
	DayStart        string // HH:MM
	DayEnd          string // HH:MM
	Timezone        string // IANA name, e.g. "America/Chicago"
	BufferMin       int    // padding around busy intervals
	ProposalTTLMin  int    // minutes a proposal stays confirmable
	EventTimeoutSec int    // bound on a single calendar call
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (Settings, error)
	SaveSettings(Settings) error

	// Tasks
	AddTask(models.Task) error
	GetTask(id string) (models.Task, error)
	ListTasks(userID string) ([]models.Task, error)
	// ListEligibleTasks returns the user's todo tasks, the snapshot a
	// proposal is built from.
	ListEligibleTasks(userID string) ([]models.Task, error)
	UpdateTask(models.Task) error
	DeleteTask(id string) error

	// Proposals. SaveProposal marks any earlier proposal for the same
	// user/date superseded in the same transaction.
	SaveProposal(models.Proposal) error
	GetProposal(id string) (models.Proposal, error)
	GetLatestProposal(userID, date string) (models.Proposal, error)

	// Blocks. TransitionBlock is an atomic compare-and-set on block
	// state: it succeeds only when the block is currently in the from
	// state, and reports whether this caller won the transition.
	TransitionBlock(blockID string, from, to models.BlockState, reason string) (bool, error)
	SetBlockEvent(blockID, eventID string) error
	GetBlock(blockID string) (models.PlannedBlock, error)
	ListBlocksForDay(userID, date string) ([]models.PlannedBlock, error)
	ListBlocksForTask(taskID string) ([]models.PlannedBlock, error)

	// Sessions
	AddSession(models.ExecutionSession) error
	CloseSession(id string, end time.Time) error
	GetActiveSession(userID string) (models.ExecutionSession, error)
	ListSessionsForTask(userID, taskID string) ([]models.ExecutionSession, error)
	ListSessionsForDay(userID, date string) ([]models.ExecutionSession, error)

	// Local calendar tables, used by the built-in calendar provider.
	AddBusyInterval(userID, date string, b models.BusyInterval) error
	ListBusyIntervals(userID, date string) ([]models.BusyInterval, error)
	AddCalendarEvent(id, userID, summary, description string, start, end time.Time) error
	DeleteCalendarEvent(id string) error

	// Utils
	GetConfigPath() string
}

// DefaultSettings is the configuration written on first init.
func DefaultSettings() Settings {
	return Settings{
		DayStart:        "09:00",
		DayEnd:          "17:00",
		Timezone:        "Local",
		BufferMin:       10,
		ProposalTTLMin:  720,
		EventTimeoutSec: 10,
	}
}

// Location resolves the configured timezone, falling back to the
// process-local zone on any failure.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
