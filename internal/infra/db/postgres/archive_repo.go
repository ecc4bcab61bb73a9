package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
)

/*
CREATE TABLE scan_history (
  id          UUID         PRIMARY KEY,
  session_id  TEXT         NOT NULL,
  scanned_at  TIMESTAMPTZ  NOT NULL,
  subject     TEXT         NOT NULL,
  sender      TEXT         NOT NULL,
  modality    TEXT         NOT NULL,
  risk_score  INT          NOT NULL,
  risk_level  TEXT         NOT NULL,
  status      TEXT         NOT NULL,
  result_json JSONB        NOT NULL
);
CREATE INDEX idx_scan_history_scanned_at ON scan_history (scanned_at DESC);
*/

type ArchiveRepository struct{ db *sql.DB }

func NewArchiveRepository(db *sql.DB) *ArchiveRepository { return &ArchiveRepository{db: db} }

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Save insert history item
func (r *ArchiveRepository) Save(ctx context.Context, it *domain.HistoryItem) error {
	const q = `
INSERT INTO scan_history
(id, session_id, scanned_at, subject, sender, modality,
 risk_score, risk_level, status, result_json)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING;`

	raw, err := json.Marshal(it.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	ts := it.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	status := string(it.Result.Status)
	if status == "" {
		status = string(analysis.StatusComplete)
	}

	_, err = r.db.ExecContext(ctx, q,
		string(it.ID), stringOrDash(it.SessionID), ts, stringOrDash(it.Subject), stringOrDash(it.Sender), string(it.Type),
		it.Result.RiskScore, string(it.Result.RiskLevel), status, string(raw),
	)
	return err
}

// Latest archived scans, newest first
func (r *ArchiveRepository) Latest(ctx context.Context, limit int) ([]*domain.HistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, session_id, scanned_at, subject, sender, modality, result_json
FROM scan_history
ORDER BY scanned_at DESC LIMIT $1;`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.HistoryItem, 0, limit)
	for rows.Next() {
		var (
			it       domain.HistoryItem
			id       string
			modality string
			raw      []byte
		)
		if err := rows.Scan(&id, &it.SessionID, &it.Timestamp, &it.Subject, &it.Sender, &modality, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &it.Result); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", id, err)
		}
		it.ID = domain.ItemID(id)
		it.Type = analysis.Modality(modality)
		out = append(out, &it)
	}
	return out, rows.Err()
}

// Summary counts archived scans per risk level since N days
func (r *ArchiveRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE risk_level = 'SAFE'),
       COUNT(*) FILTER (WHERE risk_level = 'SUSPICIOUS'),
       COUNT(*) FILTER (WHERE risk_level = 'MALICIOUS'),
       COUNT(*) FILTER (WHERE status = 'unavailable')
FROM scan_history
WHERE scanned_at >= $1;`

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

func (r *ArchiveRepository) daily(ctx context.Context, now time.Time, days int) ([]domain.DayCount, error) {
	const q = `
SELECT to_char(scanned_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
       COUNT(*) FILTER (WHERE risk_level = 'MALICIOUS'),
       COUNT(*) FILTER (WHERE risk_level = 'SUSPICIOUS'),
       COUNT(*) FILTER (WHERE risk_level = 'SAFE')
FROM scan_history
WHERE scanned_at >= $1
GROUP BY day;`

	rows, err := r.db.QueryContext(ctx, q, domain.SeriesStart(now, days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]domain.DayCount{}
	for rows.Next() {
		var c domain.DayCount
		if err := rows.Scan(&c.Date, &c.Malicious, &c.Suspicious, &c.Safe); err != nil {
			return nil, err
		}
		counts[c.Date] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.FillDays(now, days, counts), nil
}

func (r *ArchiveRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
