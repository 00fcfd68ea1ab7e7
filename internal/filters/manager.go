package filters

import (
	"fmt"
	"sync"
)

// Manager is the ordered filter catalogue.
type Manager struct {
	mu      sync.RWMutex
	order   []string
	filters map[string]Filter
}

func NewManager() *Manager {
	m := &Manager{filters: make(map[string]Filter)}
	for _, f := range builtin() {
		m.Register(f)
	}
	return m
}

// Register appends f to the catalogue, replacing a filter of the same name in place.
func (m *Manager) Register(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.filters[f.Name()]; !exists {
		m.order = append(m.order, f.Name())
	}
	m.filters[f.Name()] = f
}

func (m *Manager) Get(name string) (Filter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.filters[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
}

// Names returns filter names in catalogue order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) Title(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.filters[name]; ok {
		return f.Title()
	}
	return name
}
