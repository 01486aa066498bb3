package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/ports"
)

// Fixed-width UTC timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteHistory keeps the run audit log in an embedded sqlite database.
type SQLiteHistory struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

var _ ports.RunRecorder = (*SQLiteHistory)(nil)

// OpenSQLiteHistory opens (or creates) the database file and migrates it.
func OpenSQLiteHistory(dsn string) (*SQLiteHistory, error) {
	if path := filePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, _, err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewSQLiteHistory(db), nil
}

// NewSQLiteHistory wires an already migrated sql.DB.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Close releases the database handle.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

// RecordRun stores the run and its published items in one transaction.
func (h *SQLiteHistory) RecordRun(ctx context.Context, run domain.Run) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record run: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := h.qb.Insert("runs").
		Columns("id", "started_at", "finished_at", "status", "error", "item_count").
		Values(run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), string(run.Status), run.Error, run.ItemCount).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if len(run.Items) > 0 {
		insert := h.qb.Insert("run_items").
			Columns("run_id", "position", "source", "title", "link", "published_at")
		for i, item := range run.Items {
			insert = insert.Values(run.ID, i, string(item.Source), item.Title, item.Link, formatTime(item.Date))
		}

		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build items insert: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert items of run %s: %w", run.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first, with their items.
func (h *SQLiteHistory) RecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := h.qb.Select("id", "started_at", "finished_at", "status", "error", "item_count").
		From("runs").
		OrderBy("started_at DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build runs query: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var (
		runs []domain.Run
		ids  []string
	)
	index := map[string]int{}
	for rows.Next() {
		var (
			run               domain.Run
			started, finished string
			status            string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &status, &run.Error, &run.ItemCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("run %s finished_at: %w", run.ID, err)
		}
		run.Status = domain.RunStatus(status)

		index[run.ID] = len(runs)
		ids = append(ids, run.ID)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runs iteration: %w", err)
	}

	if len(ids) == 0 {
		return runs, nil
	}
	if err := h.loadItems(ctx, ids, runs, index); err != nil {
		return nil, err
	}
	return runs, nil
}

func (h *SQLiteHistory) loadItems(ctx context.Context, ids []string, runs []domain.Run, index map[string]int) error {
	query, args, err := h.qb.Select("run_id", "source", "title", "link", "published_at").
		From("run_items").
		Where(sq.Eq{"run_id": ids}).
		OrderBy("run_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build items query: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			runID, source, published string
			item                     domain.Announcement
		)
		if err := rows.Scan(&runID, &source, &item.Title, &item.Link, &published); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		if item.Date, err = parseTime(published); err != nil {
			return fmt.Errorf("item %s published_at: %w", item.Link, err)
		}
		item.Source = domain.Source(source)

		i := index[runID]
		runs[i].Items = append(runs[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("items iteration: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// filePath extracts the database file path from a DSN, or "" for in-memory databases.
func filePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}
