package scans

import (
	"time"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
)

// ID tipe untuk history item
type ItemID string

// HistoryItem pairs a scan's display metadata with its result. Immutable once
// appended.
type HistoryItem struct {
	ID        ItemID            `json:"id"`
	SessionID string            `json:"sessionId,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Subject   string            `json:"subject"`
	Sender    string            `json:"sender"`
	Type      analysis.Modality `json:"type"`
	Result    analysis.Result   `json:"result"`
}

// Summary rekap per risk level
type Summary struct {
	Total      int `json:"total"`
	Safe       int `json:"safe"`
	Suspicious int `json:"suspicious"`
	Malicious  int `json:"malicious"`
	Degraded   int `json:"degraded"`
	SinceDays  int `json:"sinceDays"`
	// Daily is the per-day series of the window, oldest first.
	Daily []DayCount `json:"daily,omitempty"`
}

// DayLayout formats DayCount.Date (UTC calendar day).
const DayLayout = "2006-01-02"

// DayCount satu titik grafik dashboard
type DayCount struct {
	Date       string `json:"date"`
	Malicious  int    `json:"malicious"`
	Suspicious int    `json:"suspicious"`
	Safe       int    `json:"safe"`
}

// SeriesStart is midnight UTC of the first day in a days-long series ending
// on now's date.
func SeriesStart(now time.Time, days int) time.Time {
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(days - 1))
}

// FillDays turns sparse per-day counts into a gap-free series, so days
// without scans still show up as zeros.
func FillDays(now time.Time, days int, counts map[string]DayCount) []DayCount {
	start := SeriesStart(now, days)
	out := make([]DayCount, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format(DayLayout)
		c := counts[d]
		c.Date = d
		out = append(out, c)
	}
	return out
}
