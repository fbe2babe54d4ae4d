// Package cache holds published templates keyed by id. Template versions are
// immutable, so entries are never invalidated.
package cache

import (
	"context"
	"sync"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// Memory is a process-local template cache.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*models.Template
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*models.Template)}
}

func (m *Memory) Get(_ context.Context, id string) (*models.Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.items[id]
	return t, ok
}

func (m *Memory) Set(_ context.Context, t *models.Template) {
	if t == nil || t.ID == "" {
		return
	}
	m.mu.Lock()
	m.items[t.ID] = t
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
