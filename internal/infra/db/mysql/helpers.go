package mysql

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// maxTextRunes keeps subject/sender inside a utf8mb4 TEXT column (65535 bytes).
const maxTextRunes = 16000

// clipText potong string panjang (URL, subject email) supaya insert tidak gagal
func clipText(s string) string {
	r := []rune(s)
	if len(r) <= maxTextRunes {
		return s
	}
	return string(r[:maxTextRunes])
}

// itemRow is the flattened form of a HistoryItem as stored in scan_history.
type itemRow struct {
	ID         string
	SessionID  string
	ScannedAt  time.Time
	Subject    string
	Sender     string
	Modality   string
	RiskScore  int
	RiskLevel  string
	Status     string
	ResultJSON []byte
}

func toRow(it *domain.HistoryItem) (itemRow, error) {
	raw, err := json.Marshal(it.Result)
	if err != nil {
		return itemRow{}, err
	}
	ts := it.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	status := string(it.Result.Status)
	if status == "" {
		status = string(analysis.StatusComplete)
	}
	return itemRow{
		ID:         string(it.ID),
		SessionID:  stringOrDash(it.SessionID),
		ScannedAt:  ts.UTC(),
		Subject:    clipText(stringOrDash(it.Subject)),
		Sender:     clipText(stringOrDash(it.Sender)),
		Modality:   string(it.Type),
		RiskScore:  it.Result.RiskScore,
		RiskLevel:  string(it.Result.RiskLevel),
		Status:     status,
		ResultJSON: raw,
	}, nil
}

func (r itemRow) item() (*domain.HistoryItem, error) {
	var res analysis.Result
	if err := json.Unmarshal(r.ResultJSON, &res); err != nil {
		return nil, err
	}
	return &domain.HistoryItem{
		ID:        domain.ItemID(r.ID),
		SessionID: r.SessionID,
		Timestamp: r.ScannedAt,
		Subject:   r.Subject,
		Sender:    r.Sender,
		Type:      analysis.Modality(r.Modality),
		Result:    res,
	}, nil
}
