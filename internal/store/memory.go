package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fairshare/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	datasets map[string]model.Dataset
	order    []string // insertion order for paging
}

func NewMemory() *Memory {
	return &Memory{datasets: map[string]model.Dataset{}}
}

func (m *Memory) SaveDataset(ctx context.Context, ds model.Dataset) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	ds.ID = id
	m.datasets[id] = ds
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) GetDataset(ctx context.Context, id string) (model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.datasets[id]
	if !ok {
		return model.Dataset{}, ErrNotFound
	}
	return ds, nil
}

func (m *Memory) ListDatasets(ctx context.Context, cursor string, limit int) ([]model.Dataset, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.Dataset{}
	next := ""
	for i := start; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, m.datasets[m.order[i]])
	}
	if start+len(out) < len(m.order) && len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}
