package frequency

import (
	"sync"

	"github.com/doeshing/sift/internal/ports"
)

// MemoryStore keeps counters in memory. It backs headless runs and is the
// fallback when the database cannot be opened.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]map[string]int)}
}

func (m *MemoryStore) Record(plugin, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byTitle, ok := m.counts[plugin]
	if !ok {
		byTitle = make(map[string]int)
		m.counts[plugin] = byTitle
	}
	byTitle[title]++
	return nil
}

func (m *MemoryStore) Counts(plugin string, titles []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, t := range titles {
		if c := m.counts[plugin][t]; c > 0 {
			out[t] = c
		}
	}
	return out, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = make(map[string]map[string]int)
	return nil
}

var _ ports.FrequencyStore = (*MemoryStore)(nil)
