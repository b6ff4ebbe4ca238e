package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/models"
	_ "github.com/lib/pq"
)

//go:embed schema_postgres.sql
var pgSchemaSQL string

// PostgresStore is the multi-process backend. The block compare-and-set
// runs as a conditional UPDATE, so confirmation races resolve correctly
// across process instances.
type PostgresStore struct {
	connStr string
	db      *sql.DB
}

func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		connStr: connStr,
	}
}

func (s *PostgresStore) Init() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := s.db.Exec(pgSchemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if _, err := s.GetSettings(); err != nil {
		if err := s.SaveSettings(DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) Load() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) GetSettings() (Settings, error) {
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

func (s *PostgresStore) SaveSettings(settings Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value")
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

func (s *PostgresStore) AddTask(task models.Task) error {
	return s.UpdateTask(task)
}

func (s *PostgresStore) GetTask(id string) (models.Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	return scanTask(row)
}

func (s *PostgresStore) listTasks(query string, args ...any) ([]models.Task, error) {
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

func (s *PostgresStore) ListTasks(userID string) ([]models.Task, error) {
	return s.listTasks("SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 ORDER BY created_at", userID)
}

func (s *PostgresStore) ListEligibleTasks(userID string) ([]models.Task, error) {
	return s.listTasks("SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 AND status = $2 ORDER BY id",
		userID, models.TaskStatusTodo)
}

func (s *PostgresStore) UpdateTask(task models.Task) error {
	var completedAt sql.NullString
	if task.CompletedAt != nil {
		completedAt = sql.NullString{String: task.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, user_id, title, priority, estimate_min, due_date, status, actual_min, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, priority = EXCLUDED.priority, estimate_min = EXCLUDED.estimate_min,
			due_date = EXCLUDED.due_date, status = EXCLUDED.status, actual_min = EXCLUDED.actual_min,
			completed_at = EXCLUDED.completed_at`,
		task.ID, task.UserID, task.Title, task.Priority, task.EstimateMin,
		task.DueDate, task.Status, task.ActualMin, task.CreatedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

func (s *PostgresStore) DeleteTask(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SaveProposal(p models.Proposal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"UPDATE proposals SET superseded_at = $1 WHERE user_id = $2 AND date = $3 AND superseded_at IS NULL",
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
		"INSERT INTO proposals (id, user_id, date, created_at, superseded_at, unplaced, busy) VALUES ($1, $2, $3, $4, NULL, $5, $6)",
		p.ID, p.UserID, p.Date, p.CreatedAt.UTC().Format(time.RFC3339), string(unplaced), string(busy),
	); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO blocks (id, proposal_id, user_id, date, task_id, start_time, end_time, state, calendar_event_id, reason, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
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

func (s *PostgresStore) getProposal(query string, args ...any) (models.Proposal, error) {
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

	p.Blocks, err = s.listBlocks("SELECT "+blockColumns+" FROM blocks WHERE proposal_id = $1 ORDER BY position", p.ID)
	if err != nil {
		return models.Proposal{}, err
	}

	return p, nil
}

func (s *PostgresStore) GetProposal(id string) (models.Proposal, error) {
	return s.getProposal(
		"SELECT id, user_id, date, created_at, superseded_at, unplaced, busy FROM proposals WHERE id = $1", id)
}

func (s *PostgresStore) GetLatestProposal(userID, date string) (models.Proposal, error) {
	return s.getProposal(
		"SELECT id, user_id, date, created_at, superseded_at, unplaced, busy FROM proposals WHERE user_id = $1 AND date = $2 ORDER BY created_at DESC, id DESC LIMIT 1",
		userID, date)
}

func (s *PostgresStore) listBlocks(query string, args ...any) ([]models.PlannedBlock, error) {
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

func (s *PostgresStore) TransitionBlock(blockID string, from, to models.BlockState, reason string) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE blocks SET state = $1, reason = $2 WHERE id = $3 AND state = $4",
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
		var exists int
		if err := s.db.QueryRow("SELECT 1 FROM blocks WHERE id = $1", blockID).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return false, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
			}
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) SetBlockEvent(blockID, eventID string) error {
	res, err := s.db.Exec("UPDATE blocks SET calendar_event_id = $1 WHERE id = $2", eventID, blockID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetBlock(blockID string) (models.PlannedBlock, error) {
	row := s.db.QueryRow("SELECT "+blockColumns+" FROM blocks WHERE id = $1", blockID)
	return scanBlock(row)
}

func (s *PostgresStore) ListBlocksForDay(userID, date string) ([]models.PlannedBlock, error) {
	return s.listBlocks(
		"SELECT "+blockColumns+" FROM blocks WHERE user_id = $1 AND date = $2 ORDER BY start_time, id",
		userID, date)
}

func (s *PostgresStore) ListBlocksForTask(taskID string) ([]models.PlannedBlock, error) {
	return s.listBlocks(
		"SELECT "+blockColumns+" FROM blocks WHERE task_id = $1 ORDER BY start_time, id", taskID)
}

func (s *PostgresStore) AddSession(sess models.ExecutionSession) error {
	var end sql.NullString
	if sess.End != nil {
		end = sql.NullString{String: sess.End.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, user_id, task_id, start_time, end_time) VALUES ($1, $2, $3, $4, $5)",
		sess.ID, sess.UserID, sess.TaskID, sess.Start.UTC().Format(time.RFC3339), end,
	)
	return err
}

func (s *PostgresStore) CloseSession(id string, end time.Time) error {
	res, err := s.db.Exec(
		"UPDATE sessions SET end_time = $1 WHERE id = $2 AND end_time IS NULL",
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

func (s *PostgresStore) GetActiveSession(userID string) (models.ExecutionSession, error) {
	row := s.db.QueryRow(
		"SELECT id, user_id, task_id, start_time, end_time FROM sessions WHERE user_id = $1 AND end_time IS NULL LIMIT 1",
		userID)
	return scanSession(row)
}

func (s *PostgresStore) listSessions(query string, args ...any) ([]models.ExecutionSession, error) {
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

func (s *PostgresStore) ListSessionsForTask(userID, taskID string) ([]models.ExecutionSession, error) {
	return s.listSessions(
		"SELECT id, user_id, task_id, start_time, end_time FROM sessions WHERE user_id = $1 AND task_id = $2 ORDER BY start_time",
		userID, taskID)
}

func (s *PostgresStore) ListSessionsForDay(userID, date string) ([]models.ExecutionSession, error) {
	lo, hi, err := utcDayBounds(date)
	if err != nil {
		return nil, err
	}
	return s.listSessions(
		"SELECT id, user_id, task_id, start_time, end_time FROM sessions WHERE user_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time",
		userID, lo, hi)
}

func (s *PostgresStore) AddBusyInterval(userID, date string, b models.BusyInterval) error {
	_, err := s.db.Exec(
		"INSERT INTO busy_intervals (user_id, date, start_time, end_time, source) VALUES ($1, $2, $3, $4, $5)",
		userID, date, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339), b.Source,
	)
	return err
}

func (s *PostgresStore) ListBusyIntervals(userID, date string) ([]models.BusyInterval, error) {
	rows, err := s.db.Query(
		"SELECT start_time, end_time, source FROM busy_intervals WHERE user_id = $1 AND date = $2 ORDER BY start_time",
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

func (s *PostgresStore) AddCalendarEvent(id, userID, summary, description string, start, end time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO calendar_events (id, user_id, summary, description, start_time, end_time) VALUES ($1, $2, $3, $4, $5, $6)",
		id, userID, summary, description, start.Format(time.RFC3339), end.Format(time.RFC3339),
	)
	return err
}

func (s *PostgresStore) DeleteCalendarEvent(id string) error {
	res, err := s.db.Exec("DELETE FROM calendar_events WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("calendar event %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetConfigPath() string {
	return "postgres"
}
