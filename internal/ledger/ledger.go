// Package ledger is the durable record of what happened to each posting. It
// is the only source of truth for skipping work on restart.
package ledger

import (
	"context"
	"crypto/md5"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	FileName        = "job_history.db"
	timestampLayout = "2006-01-02 15:04:05"
)

// Record is one row of the decision history.
type Record struct {
	Key       string
	URL       string
	Title     string
	Status    Status
	Reason    string
	Timestamp string
}

type Ledger struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating when needed) the SQLite ledger at path and applies
// pending migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	l := New(db, logger)
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}

// New wraps an already opened database without running migrations.
func New(db *sql.DB, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Ledger) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{l.logger.Sugar()})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, l.db, "migrations"); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Key identifies a posting by its URL with the query string removed. A
// fragment without a query is part of the key, matching existing ledgers.
func Key(url string) string {
	clean := strings.TrimSpace(url)
	if idx := strings.IndexByte(clean, '?'); idx != -1 {
		clean = clean[:idx]
	}

	sum := md5.Sum([]byte(clean))
	return hex.EncodeToString(sum[:])
}

// Status returns the recorded outcome for url, or nil when the posting was
// never seen.
func (l *Ledger) Status(ctx context.Context, url string) (*Record, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT job_hash, COALESCE(url, ''), COALESCE(title, ''), COALESCE(status, ''),
		       COALESCE(reason, ''), COALESCE(CAST(timestamp AS TEXT), '')
		FROM jobs WHERE job_hash = ?`, Key(url))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger status: %w", err)
	}
	return rec, nil
}

// Seen reports whether url has any recorded outcome.
func (l *Ledger) Seen(ctx context.Context, url string) (bool, error) {
	rec, err := l.Status(ctx, url)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Record stores the outcome for url. A later call for the same posting
// replaces the earlier one.
func (l *Ledger) Record(ctx context.Context, url, title string, status Status, reason string) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO jobs (job_hash, url, title, status, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_hash) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			status = excluded.status,
			reason = excluded.reason,
			timestamp = excluded.timestamp`,
		Key(url), url, title, string(status), reason, l.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("record ledger status: %w", err)
	}

	l.logger.Debug("ledger record",
		zap.String("url", url),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)
	return nil
}

// Forget removes the record for url so the posting is processed again.
func (l *Ledger) Forget(ctx context.Context, url string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_hash = ?`, Key(url))
	if err != nil {
		return false, fmt.Errorf("forget ledger record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("forget ledger record: %w", err)
	}
	return n > 0, nil
}

// Reset deletes the whole decision history and returns the number of rows removed.
func (l *Ledger) Reset(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("reset ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset ledger: %w", err)
	}
	return n, nil
}

// List returns records, newest first. An empty status returns every record.
func (l *Ledger) List(ctx context.Context, status Status) ([]*Record, error) {
	query := `
		SELECT job_hash, COALESCE(url, ''), COALESCE(title, ''), COALESCE(status, ''),
		       COALESCE(reason, ''), COALESCE(CAST(timestamp AS TEXT), '')
		FROM jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY timestamp DESC, job_hash`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return records, nil
}

// Counts returns the number of records per status.
func (l *Ledger) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT COALESCE(status, ''), COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan ledger count: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}
	return counts, nil
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(timestampLayout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec    Record
		status string
	)
	if err := s.Scan(&rec.Key, &rec.URL, &rec.Title, &status, &rec.Reason, &rec.Timestamp); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	return &rec, nil
}

type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.sugar.Fatalf(format, v...)
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.sugar.Debugf(strings.TrimSpace(format), v...)
}
