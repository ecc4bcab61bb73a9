package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
)

/*
CREATE TABLE scan_history (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  session_id  VARCHAR(64)  NOT NULL,
  scanned_at  DATETIME(3)  NOT NULL,
  subject     TEXT         NOT NULL,
  sender      TEXT         NOT NULL,
  modality    VARCHAR(16)  NOT NULL,
  risk_score  INT          NOT NULL,
  risk_level  VARCHAR(16)  NOT NULL,
  status      VARCHAR(16)  NOT NULL,
  result_json JSON         NOT NULL,
  KEY idx_scan_history_scanned_at (scanned_at)
);
*/

type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Save insert history item; ulang dengan id sama diabaikan
func (r *ArchiveRepository) Save(ctx context.Context, it *domain.HistoryItem) error {
	const q = `
INSERT INTO scan_history
(id, session_id, scanned_at, subject, sender, modality,
 risk_score, risk_level, status, result_json)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE id=id;
`
	row, err := toRow(it)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q,
		row.ID, row.SessionID, row.ScannedAt, row.Subject, row.Sender, row.Modality,
		row.RiskScore, row.RiskLevel, row.Status, row.ResultJSON,
	)
	return err
}

// Latest archived scans, newest first
func (r *ArchiveRepository) Latest(ctx context.Context, limit int) ([]*domain.HistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, session_id, scanned_at, subject, sender, modality,
       risk_score, risk_level, status, result_json
FROM scan_history
ORDER BY scanned_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.HistoryItem, 0, limit)
	for rows.Next() {
		var row itemRow
		if err := rows.Scan(
			&row.ID, &row.SessionID, &row.ScannedAt, &row.Subject, &row.Sender, &row.Modality,
			&row.RiskScore, &row.RiskLevel, &row.Status, &row.ResultJSON,
		); err != nil {
			return nil, err
		}
		it, err := row.item()
		if err != nil {
			return nil, fmt.Errorf("decode result %s: %w", row.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Summary counts archived scans per risk level since N days
func (r *ArchiveRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().UTC().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total,
       COALESCE(SUM(risk_level='SAFE'),0)        AS safe,
       COALESCE(SUM(risk_level='SUSPICIOUS'),0)  AS suspicious,
       COALESCE(SUM(risk_level='MALICIOUS'),0)   AS malicious,
       COALESCE(SUM(status='unavailable'),0)     AS degraded
FROM scan_history
WHERE scanned_at >= ?;
`
	s := domain.Summary{SinceDays: sinceDays}
	if err := r.db.QueryRowContext(ctx, q, cut).Scan(&s.Total, &s.Safe, &s.Suspicious, &s.Malicious, &s.Degraded); err != nil {
		return domain.Summary{}, err
	}
	daily, err := r.daily(ctx, time.Now(), sinceDays)
	if err != nil {
		return domain.Summary{}, err
	}
	s.Daily = daily
	return s, nil
}

// daily per-day counts for the dashboard chart (DSN pakai loc=UTC)
func (r *ArchiveRepository) daily(ctx context.Context, now time.Time, days int) ([]domain.DayCount, error) {
	const q = `
SELECT DATE(scanned_at) AS day,
       COALESCE(SUM(risk_level='MALICIOUS'),0),
       COALESCE(SUM(risk_level='SUSPICIOUS'),0),
       COALESCE(SUM(risk_level='SAFE'),0)
FROM scan_history
WHERE scanned_at >= ?
GROUP BY day;
`
	rows, err := r.db.QueryContext(ctx, q, domain.SeriesStart(now, days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]domain.DayCount{}
	for rows.Next() {
		var (
			day time.Time
			c   domain.DayCount
		)
		if err := rows.Scan(&day, &c.Malicious, &c.Suspicious, &c.Safe); err != nil {
			return nil, err
		}
		c.Date = day.Format(domain.DayLayout)
		counts[c.Date] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.FillDays(now, days, counts), nil
}

// Ping dipakai health checker
func (r *ArchiveRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
