package ledger

import (
	"context"
	"fmt"
)

// ScoutRecord is a posting found worth applying to during a scouting pass.
type ScoutRecord struct {
	Key       string
	URL       string
	Title     string
	Company   string
	Location  string
	Score     int
	Reason    string
	Completed bool
	Timestamp string
}

// AddScout stores a scouted posting. A posting already present is left
// untouched and false is returned.
func (l *Ledger) AddScout(ctx context.Context, rec ScoutRecord) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO scout_jobs (job_hash, url, title, company, location, score, reason, completed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		Key(rec.URL), rec.URL, rec.Title, rec.Company, rec.Location, rec.Score, rec.Reason, l.timestamp(),
	)
	if err != nil {
		return false, fmt.Errorf("add scout job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add scout job: %w", err)
	}
	return n > 0, nil
}

// ScoutJobs lists scouted postings, best score first.
func (l *Ledger) ScoutJobs(ctx context.Context, pendingOnly bool) ([]*ScoutRecord, error) {
	query := `
		SELECT job_hash, COALESCE(url, ''), COALESCE(title, ''), COALESCE(company, ''),
		       COALESCE(location, ''), COALESCE(score, 0), COALESCE(reason, ''),
		       COALESCE(completed, 0), COALESCE(CAST(timestamp AS TEXT), '')
		FROM scout_jobs`
	if pendingOnly {
		query += ` WHERE COALESCE(completed, 0) = 0`
	}
	query += ` ORDER BY score DESC, timestamp DESC`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scout jobs: %w", err)
	}
	defer rows.Close()

	var records []*ScoutRecord
	for rows.Next() {
		var (
			rec       ScoutRecord
			completed int
		)
		if err := rows.Scan(&rec.Key, &rec.URL, &rec.Title, &rec.Company, &rec.Location,
			&rec.Score, &rec.Reason, &completed, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan scout job: %w", err)
		}
		rec.Completed = completed != 0
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scout jobs: %w", err)
	}
	return records, nil
}

// SetScoutCompleted marks a scouted posting as handled (or pending again).
// It returns false when url was never scouted.
func (l *Ledger) SetScoutCompleted(ctx context.Context, url string, completed bool) (bool, error) {
	value := 0
	if completed {
		value = 1
	}

	res, err := l.db.ExecContext(ctx, `UPDATE scout_jobs SET completed = ? WHERE job_hash = ?`, value, Key(url))
	if err != nil {
		return false, fmt.Errorf("update scout job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update scout job: %w", err)
	}
	return n > 0, nil
}
