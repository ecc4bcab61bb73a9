package scans

import (
	"sync"

	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
)

// History is an append-only, in-memory list of scan results. Items are never
// mutated or removed.
type History struct {
	mu    sync.RWMutex
	items []domain.HistoryItem
}

func NewHistory() *History { return &History{} }

func (h *History) Append(item domain.HistoryItem) {
	h.mu.Lock()
	h.items = append(h.items, item)
	h.mu.Unlock()
}

// Items returns a snapshot in append order.
func (h *History) Items() []domain.HistoryItem {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.HistoryItem, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Get(id domain.ItemID) (domain.HistoryItem, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, it := range h.items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.HistoryItem{}, false
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}
