package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{
		path: path,
	}
}

func (s *SQLiteStore) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection avoids SQLITE_BUSY under concurrent writers;
	// the driver serializes statements instead.
	db.SetMaxOpenConns(1)
	s.db = db

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// Initialize default settings if not present
	if _, err := s.GetSettings(); err != nil {
		if err := s.SaveSettings(DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'assistant init' first")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s.db = db

	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) GetSettings() (Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	settings := Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case "day_start":
			settings.DayStart = value
		case "day_end":
			settings.DayEnd = value
		case "timezone":
			settings.Timezone = value
		case "buffer_min":
			fmt.Sscanf(value, "%d", &settings.BufferMin)
		case "proposal_ttl_min":
			fmt.Sscanf(value, "%d", &settings.ProposalTTLMin)
		case "event_timeout_sec":
			fmt.Sscanf(value, "%d", &settings.EventTimeoutSec)
		}
		count++
	}

	if count == 0 {
		return Settings{}, fmt.Errorf("settings not found")
	}

	return settings, nil
}

func (s *SQLiteStore) SaveSettings(settings Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	pairs := map[string]string{
		"day_start":         settings.DayStart,
		"day_end":           settings.DayEnd,
		"timezone":          settings.Timezone,
		"buffer_min":        fmt.Sprintf("%d", settings.BufferMin),
		"proposal_ttl_min":  fmt.Sprintf("%d", settings.ProposalTTLMin),
		"event_timeout_sec": fmt.Sprintf("%d", settings.EventTimeoutSec),
	}
	for key, value := range pairs {
		if _, err := stmt.Exec(key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) AddTask(task models.Task) error {
	return s.UpdateTask(task)
}

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var createdAt string
	var completedAt sql.NullString

	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Priority, &t.EstimateMin,
		&t.DueDate, &t.Status, &t.ActualMin, &createdAt, &completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt.Valid {
		done, err := time.Parse(time.RFC3339, completedAt.String)
		if err == nil {
			t.CompletedAt = &done
		}
	}
	return t, nil
}

const taskColumns = "id, user_id, title, priority, estimate_min, due_date, status, actual_min, created_at, completed_at"

func (s *SQLiteStore) GetTask(id string) (models.Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	return scanTask(row)
}

func (s *SQLiteStore) listTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) ListTasks(userID string) ([]models.Task, error) {
	return s.listTasks("SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at", userID)
}

func (s *SQLiteStore) ListEligibleTasks(userID string) ([]models.Task, error) {
	return s.listTasks("SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND status = ? ORDER BY id",
		userID, models.TaskStatusTodo)
}

func (s *SQLiteStore) UpdateTask(task models.Task) error {
	var completedAt sql.NullString
	if task.CompletedAt != nil {
		completedAt = sql.NullString{String: task.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO tasks (id, user_id, title, priority, estimate_min, due_date, status, actual_min, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Priority, task.EstimateMin,
		task.DueDate, task.Status, task.ActualMin, task.CreatedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

func (s *SQLiteStore) DeleteTask(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) SaveProposal(p models.Proposal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Supersede any earlier live proposal for this user/date so its id
	// can no longer be confirmed.
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"UPDATE proposals SET superseded_at = ? WHERE user_id = ? AND date = ? AND superseded_at IS NULL",
		now, p.UserID, p.Date,
	); err != nil {
		return err
	}

	unplaced, err := json.Marshal(p.Unplaced)
	if err != nil {
		return fmt.Errorf("failed to serialize unplaced tasks: %w", err)
	}
	busy, err := json.Marshal(p.Busy)
	if err != nil {
		return fmt.Errorf("failed to serialize busy snapshot: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO proposals (id, user_id, date, created_at, superseded_at, unplaced, busy) VALUES (?, ?, ?, ?, NULL, ?, ?)",
		p.ID, p.UserID, p.Date, p.CreatedAt.UTC().Format(time.RFC3339), string(unplaced), string(busy),
	); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO blocks (id, proposal_id, user_id, date, task_id, start_time, end_time, state, calendar_event_id, reason, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, b := range p.Blocks {
		if _, err := stmt.Exec(
			b.ID, p.ID, b.UserID, p.Date, b.TaskID,
			b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339),
			b.State, b.CalendarEventID, b.Reason, i,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) getProposal(query string, args ...any) (models.Proposal, error) {
	var p models.Proposal
	var createdAt string
	var supersededAt sql.NullString
	var unplaced, busy string

	err := s.db.QueryRow(query, args...).Scan(&p.ID, &p.UserID, &p.Date, &createdAt, &supersededAt, &unplaced, &busy)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Proposal{}, ErrNotFound
		}
		return models.Proposal{}, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if supersededAt.Valid {
		ts, err := time.Parse(time.RFC3339, supersededAt.String)
		if err == nil {
			p.SupersededAt = &ts
		}
	}
	if err := json.Unmarshal([]byte(unplaced), &p.Unplaced); err != nil {
		return models.Proposal{}, fmt.Errorf("failed to parse unplaced tasks: %w", err)
	}
	if err := json.Unmarshal([]byte(busy), &p.Busy); err != nil {
		return models.Proposal{}, fmt.Errorf("failed to parse busy snapshot: %w", err)
	}

	p.Blocks, err = s.listBlocks("SELECT "+blockColumns+" FROM blocks WHERE proposal_id = ? ORDER BY position", p.ID)
	if err != nil {
		return models.Proposal{}, err
	}

	return p, nil
}

func (s *SQLiteStore) GetProposal(id string) (models.Proposal, error) {
	return s.getProposal(
		"SELECT id, user_id, date, created_at, superseded_at, unplaced, busy FROM proposals WHERE id = ?", id)
}

func (s *SQLiteStore) GetLatestProposal(userID, date string) (models.Proposal, error) {
	return s.getProposal(
		"SELECT id, user_id, date, created_at, superseded_at, unplaced, busy FROM proposals WHERE user_id = ? AND date = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		userID, date)
}

const blockColumns = "id, user_id, date, task_id, start_time, end_time, state, calendar_event_id, reason"

func scanBlock(row interface{ Scan(...any) error }) (models.PlannedBlock, error) {
	var b models.PlannedBlock
	var start, end string

	err := row.Scan(&b.ID, &b.UserID, &b.Date, &b.TaskID, &start, &end, &b.State, &b.CalendarEventID, &b.Reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.PlannedBlock{}, ErrNotFound
		}
		return models.PlannedBlock{}, err
	}

	b.Start, _ = time.Parse(time.RFC3339, start)
	b.End, _ = time.Parse(time.RFC3339, end)
	return b, nil
}

func (s *SQLiteStore) listBlocks(query string, args ...any) ([]models.PlannedBlock, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.PlannedBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// TransitionBlock performs the compare-and-set the confirm protocol
// depends on: the conditional WHERE clause makes the state check and
// the update a single atomic statement, so of two racing confirms only
// one observes rows-affected == 1.
func (s *SQLiteStore) TransitionBlock(blockID string, from, to models.BlockState, reason string) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE blocks SET state = ?, reason = ? WHERE id = ? AND state = ?",
		to, reason, blockID, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Distinguish a lost race from a missing block.
		var exists int
		if err := s.db.QueryRow("SELECT 1 FROM blocks WHERE id = ?", blockID).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return false, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
			}
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *SQLiteStore) SetBlockEvent(blockID, eventID string) error {
	res, err := s.db.Exec("UPDATE blocks SET calendar_event_id = ? WHERE id = ?", eventID, blockID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetBlock(blockID string) (models.PlannedBlock, error) {
	row := s.db.QueryRow("SELECT "+blockColumns+" FROM blocks WHERE id = ?", blockID)
	return scanBlock(row)
}

func (s *SQLiteStore) ListBlocksForDay(userID, date string) ([]models.PlannedBlock, error) {
	return s.listBlocks(
		"SELECT "+blockColumns+" FROM blocks WHERE user_id = ? AND date = ? ORDER BY start_time, id",
		userID, date)
}

func (s *SQLiteStore) ListBlocksForTask(taskID string) ([]models.PlannedBlock, error) {
	return s.listBlocks(
		"SELECT "+blockColumns+" FROM blocks WHERE task_id = ? ORDER BY start_time, id", taskID)
}

func (s *SQLiteStore) AddSession(sess models.ExecutionSession) error {
	var end sql.NullString
	if sess.End != nil {
		end = sql.NullString{String: sess.End.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, user_id, task_id, start_time, end_time) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.UserID, sess.TaskID, sess.Start.UTC().Format(time.RFC3339), end,
	)
	return err
}

func (s *SQLiteStore) CloseSession(id string, end time.Time) error {
	res, err := s.db.Exec(
		"UPDATE sessions SET end_time = ? WHERE id = ? AND end_time IS NULL",
		end.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (models.ExecutionSession, error) {
	var sess models.ExecutionSession
	var start string
	var end sql.NullString

	err := row.Scan(&sess.ID, &sess.UserID, &sess.TaskID, &start, &end)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ExecutionSession{}, ErrNotFound
		}
		return models.ExecutionSession{}, err
	}

	sess.Start, _ = time.Parse(time.RFC3339, start)
	if end.Valid {
		ts, err := time.Parse(time.RFC3339, end.String)
		if err == nil {
			sess.End = &ts
		}
	}
	return sess, nil
}

func (s *SQLiteStore) GetActiveSession(userID string) (models.ExecutionSession, error) {
	row := s.db.QueryRow(
		"SELECT id, user_id, task_id, start_time, end_time FROM sessions WHERE user_id = ? AND end_time IS NULL",
		userID)
	return scanSession(row)
}

func (s *SQLiteStore) listSessions(query string, args ...any) ([]models.ExecutionSession, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ExecutionSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) ListSessionsForTask(userID, taskID string) ([]models.ExecutionSession, error) {
	return s.listSessions(
		"SELECT id, user_id, task_id, start_time, end_time FROM sessions WHERE user_id = ? AND task_id = ? ORDER BY start_time",
		userID, taskID)
}

func (s *SQLiteStore) ListSessionsForDay(userID, date string) ([]models.ExecutionSession, error) {
	lo, hi, err := utcDayBounds(date)
	if err != nil {
		return nil, err
	}
	return s.listSessions(
		"SELECT id, user_id, task_id, start_time, end_time FROM sessions WHERE user_id = ? AND start_time >= ? AND start_time < ? ORDER BY start_time",
		userID, lo, hi)
}

// utcDayBounds returns the half-open RFC3339 range covering one UTC
// day; stored timestamps are UTC so lexical comparison is safe.
func utcDayBounds(date string) (string, string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day.Format(time.RFC3339), day.Add(24 * time.Hour).Format(time.RFC3339), nil
}

func (s *SQLiteStore) AddBusyInterval(userID, date string, b models.BusyInterval) error {
	_, err := s.db.Exec(
		"INSERT INTO busy_intervals (user_id, date, start_time, end_time, source) VALUES (?, ?, ?, ?, ?)",
		userID, date, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339), b.Source,
	)
	return err
}

func (s *SQLiteStore) ListBusyIntervals(userID, date string) ([]models.BusyInterval, error) {
	rows, err := s.db.Query(
		"SELECT start_time, end_time, source FROM busy_intervals WHERE user_id = ? AND date = ? ORDER BY start_time",
		userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []models.BusyInterval
	for rows.Next() {
		var b models.BusyInterval
		var start, end string
		if err := rows.Scan(&start, &end, &b.Source); err != nil {
			return nil, err
		}
		b.Start, _ = time.Parse(time.RFC3339, start)
		b.End, _ = time.Parse(time.RFC3339, end)
		busy = append(busy, b)
	}
	return busy, rows.Err()
}

func (s *SQLiteStore) AddCalendarEvent(id, userID, summary, description string, start, end time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO calendar_events (id, user_id, summary, description, start_time, end_time) VALUES (?, ?, ?, ?, ?, ?)",
		id, userID, summary, description, start.Format(time.RFC3339), end.Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteStore) DeleteCalendarEvent(id string) error {
	res, err := s.db.Exec("DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("calendar event %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetConfigPath() string {
	return s.path
}
