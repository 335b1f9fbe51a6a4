package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Jawbreaker1/macassess/internal/llm"
)

const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// DB wraps *sql.DB for the run archive.
type DB struct {
	*sql.DB
}

// Run is one archived assessment. Messages is only filled by GetRun.
type Run struct {
	ID            string
	Objective     string
	Provider      string
	Model         string
	PlanObjective string
	Steps         []string
	Completed     int
	Status        string
	Error         string
	Report        string
	ToolCalls     int
	StartedAt     time.Time
	FinishedAt    time.Time
	Messages      []llm.Message
}

// Open opens the SQLite database at path and applies the schema. Creates the
// file and its directory if missing.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &DB{db}, nil
}

// SaveRun stores run and its transcript in one transaction, replacing any
// previous copy with the same ID.
func (db *DB) SaveRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	steps, err := json.Marshal(nonNil(run.Steps))
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, objective, provider, model, plan_objective, steps, completed, status, error, report, tool_calls, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Objective, run.Provider, run.Model, run.PlanObjective, string(steps), run.Completed,
		run.Status, run.Error, run.Report, run.ToolCalls, formatTime(run.StartedAt), formatTime(run.FinishedAt),
	); err != nil {
		return err
	}
	for seq, msg := range run.Messages {
		var toolCalls sql.NullString
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls: %w", err)
			}
			toolCalls = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (run_id, seq, role, content, tool_calls, tool_call_id, name) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, seq, msg.Role, msg.Content, toolCalls, msg.ToolCallID, msg.Name,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first, without transcripts.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetRun loads a run and its transcript. id may be a unique prefix.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := db.QueryContext(ctx, selectRun+` WHERE substr(id, 1, length(?)) = ? ORDER BY id = ? DESC LIMIT 2`, id, id, id)
	if err != nil {
		return nil, err
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
	run := matches[0]
	messages, err := db.messages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Messages = messages
	return &run, nil
}

func (db *DB) messages(ctx context.Context, runID string) ([]llm.Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id, name FROM messages WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCalls sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCalls, &msg.ToolCallID, &msg.Name); err != nil {
			return nil, err
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

const selectRun = `SELECT id, objective, provider, model, plan_objective, steps, completed, status, error, report, tool_calls, started_at, finished_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var steps, started, finished string
	if err := row.Scan(&run.ID, &run.Objective, &run.Provider, &run.Model, &run.PlanObjective, &steps,
		&run.Completed, &run.Status, &run.Error, &run.Report, &run.ToolCalls, &started, &finished); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(steps), &run.Steps); err != nil {
		return Run{}, fmt.Errorf("decode steps: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nonNil(steps []string) []string {
	if steps == nil {
		return []string{}
	}
	return steps
}
