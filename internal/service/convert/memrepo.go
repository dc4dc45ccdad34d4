package convert

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/boardfen/internal/domain"
)

// memrepo is used when no DATABASE_URL is configured. History is lost on restart
// and only the newest capacity entries are kept.
type memrepo struct {
	mu sync.RWMutex

	capacity int
	byID     map[string]*domain.Conversion
	order    []*domain.Conversion // insertion order, latest last
}

// NewMemoryRepository keeps as many conversions as one History call can return.
func NewMemoryRepository() Repository {
	return newMemoryRepository(maxHistoryLimit)
}

func newMemoryRepository(capacity int) *memrepo {
	return &memrepo{capacity: max(capacity, 1), byID: make(map[string]*domain.Conversion)}
}

func (m *memrepo) Backend() string { return "memory" }

func (m *memrepo) InsertConversion(ctx context.Context, conv *domain.Conversion) error {
	if conv == nil {
		return ErrDuplicateConversion
	}
	id := strings.TrimSpace(conv.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[id]; exists {
		return ErrDuplicateConversion
	}
	stored := cloneConversion(conv)
	m.byID[id] = stored
	m.order = append(m.order, stored)
	if over := len(m.order) - m.capacity; over > 0 {
		for _, old := range m.order[:over] {
			delete(m.byID, strings.TrimSpace(old.ID))
		}
		m.order = append(m.order[:0:0], m.order[over:]...)
	}
	return nil
}

func (m *memrepo) GetRecentConversions(ctx context.Context, limit int) ([]*domain.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*domain.Conversion, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		items = append(items, m.order[i])
	}

	// newest first; equal timestamps keep reverse insertion order
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i, c := range items {
		items[i] = cloneConversion(c)
	}
	return items, nil
}

func (m *memrepo) GetConversion(ctx context.Context, id string) (*domain.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.byID[strings.TrimSpace(id)]; ok && c != nil {
		return cloneConversion(c), nil
	}
	return nil, nil
}

func cloneConversion(c *domain.Conversion) *domain.Conversion {
	out := *c
	out.Squares = append([]string(nil), c.Squares...)
	return &out
}
