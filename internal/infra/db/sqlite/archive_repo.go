package sqlite

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

// fixed width so text comparison orders like time
const tsLayout = "2006-01-02 15:04:05.000000000"

type ArchiveRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db, now: time.Now}
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Save insert history item; duplicate id diabaikan
func (r *ArchiveRepository) Save(ctx context.Context, it *domain.HistoryItem) error {
	const q = `
INSERT OR IGNORE INTO scan_history
(id, session_id, scanned_at, subject, sender, modality,
 risk_score, risk_level, status, result_json)
VALUES (?,?,?,?,?,?,?,?,?,?);`

	raw, err := json.Marshal(it.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	ts := it.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	status := string(it.Result.Status)
	if status == "" {
		status = string(analysis.StatusComplete)
	}

	_, err = r.db.ExecContext(ctx, q,
		string(it.ID), stringOrDash(it.SessionID), ts.UTC().Format(tsLayout),
		stringOrDash(it.Subject), stringOrDash(it.Sender), string(it.Type),
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
ORDER BY scanned_at DESC LIMIT ?;`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.HistoryItem, 0, limit)
	for rows.Next() {
		var (
			it               domain.HistoryItem
			id, ts, mod, raw string
		)
		if err := rows.Scan(&id, &it.SessionID, &ts, &it.Subject, &it.Sender, &mod, &raw); err != nil {
			return nil, err
		}
		if it.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("decode time %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(raw), &it.Result); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", id, err)
		}
		it.ID = domain.ItemID(id)
		it.Type = analysis.Modality(mod)
		out = append(out, &it)
	}
	return out, rows.Err()
}

// Summary counts archived scans per risk level since N days
func (r *ArchiveRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := r.now().UTC().AddDate(0, 0, -sinceDays).Format(tsLayout)

	const q = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN risk_level = 'SAFE' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN risk_level = 'SUSPICIOUS' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN risk_level = 'MALICIOUS' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN status = 'unavailable' THEN 1 ELSE 0 END), 0)
FROM scan_history
WHERE scanned_at >= ?;`

	s := domain.Summary{SinceDays: sinceDays}
	if err := r.db.QueryRowContext(ctx, q, cut).Scan(&s.Total, &s.Safe, &s.Suspicious, &s.Malicious, &s.Degraded); err != nil {
		return domain.Summary{}, err
	}
	daily, err := r.daily(ctx, sinceDays)
	if err != nil {
		return domain.Summary{}, err
	}
	s.Daily = daily
	return s, nil
}

// daily groups on the date prefix of the fixed-width UTC timestamp.
func (r *ArchiveRepository) daily(ctx context.Context, days int) ([]domain.DayCount, error) {
	now := r.now()
	start := domain.SeriesStart(now, days).Format(tsLayout)

	const q = `
SELECT substr(scanned_at, 1, 10) AS day,
       SUM(CASE WHEN risk_level = 'MALICIOUS' THEN 1 ELSE 0 END),
       SUM(CASE WHEN risk_level = 'SUSPICIOUS' THEN 1 ELSE 0 END),
       SUM(CASE WHEN risk_level = 'SAFE' THEN 1 ELSE 0 END)
FROM scan_history
WHERE scanned_at >= ?
GROUP BY day;`

	rows, err := r.db.QueryContext(ctx, q, start)
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
