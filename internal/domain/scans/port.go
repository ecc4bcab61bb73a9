package scans

import "context"

// Archive port (durable log of finished scans, feeds the dashboard)
type Archive interface {
	Save(ctx context.Context, item *HistoryItem) error
	Latest(ctx context.Context, limit int) ([]*HistoryItem, error)
	Summary(ctx context.Context, sinceDays int) (Summary, error)
}

// Alerter port (notifies about MALICIOUS verdicts)
type Alerter interface {
	Alert(ctx context.Context, item *HistoryItem) error
}

// ReportStore port (penyimpanan report hasil export)
type ReportStore interface {
	PutReport(ctx context.Context, key, contentType string, body []byte) (string, error)
}
