package view

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local tooling.
type MemoryStore struct {
	mu   sync.RWMutex
	tabs map[string]Tab
}

// NewMemoryStore returns an empty in-memory view store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tabs: make(map[string]Tab)}
}

// GetTab implements Store.
func (s *MemoryStore) GetTab(_ context.Context, tabID string) (*Tab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab, ok := s.tabs[tabID]
	if !ok {
		return nil, nil
	}
	return cloneTab(tab), nil
}

// GetOpenTabForTable implements Store.
func (s *MemoryStore) GetOpenTabForTable(_ context.Context, tableNumber int) (*Tab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tab := range s.tabs {
		if tab.Status == "open" && tab.TableNumber == tableNumber {
			return cloneTab(tab), nil
		}
	}
	return nil, nil
}

// ListOpenTabs implements Store.
func (s *MemoryStore) ListOpenTabs(_ context.Context) ([]Tab, error) {
	return s.listOpen(func(Tab) bool { return true }), nil
}

// ListOpenTabsByWaiter implements Store.
func (s *MemoryStore) ListOpenTabsByWaiter(_ context.Context, waiterID string) ([]Tab, error) {
	return s.listOpen(func(t Tab) bool { return t.WaiterID == waiterID }), nil
}

// UpsertTab implements Store.
func (s *MemoryStore) UpsertTab(_ context.Context, tab Tab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab.TabID] = *cloneTab(tab)
	return nil
}

func (s *MemoryStore) listOpen(keep func(Tab) bool) []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tab
	for _, tab := range s.tabs {
		if tab.Status == "open" && keep(tab) {
			out = append(out, *cloneTab(tab))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

func cloneTab(t Tab) *Tab {
	t.Outstanding = append([]Line(nil), t.Outstanding...)
	t.Served = append([]Line(nil), t.Served...)
	return &t
}
