// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/feasibility-engine/feaso"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	sites     map[feaso.SiteID]feaso.Site
	scenarios map[feaso.ScenarioID]feaso.Scenario
}

func NewMemory() *Memory {
	return &Memory{
		sites:     make(map[feaso.SiteID]feaso.Site),
		scenarios: make(map[feaso.ScenarioID]feaso.Scenario),
	}
}

func (m *Memory) SaveSite(_ context.Context, site feaso.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[site.ID] = site
	return nil
}

func (m *Memory) GetSite(_ context.Context, id feaso.SiteID) (feaso.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	site, ok := m.sites[id]
	if !ok {
		return feaso.Site{}, feaso.ErrSiteNotFound
	}
	return site, nil
}

func (m *Memory) ListSites(_ context.Context) ([]feaso.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]feaso.Site, 0, len(m.sites))
	for _, s := range m.sites {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SaveScenario stores a deep copy so callers can keep mutating theirs. The
// scenario's site must exist.
func (m *Memory) SaveScenario(_ context.Context, s feaso.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[s.SiteID]; !ok {
		return fmt.Errorf("scenario %s: %w", s.ID, feaso.ErrSiteNotFound)
	}
	m.scenarios[s.ID] = s.Clone()
	return nil
}

func (m *Memory) GetScenario(_ context.Context, id feaso.ScenarioID) (feaso.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenarios[id]
	if !ok {
		return feaso.Scenario{}, feaso.ErrScenarioNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) ListScenarios(_ context.Context, siteID feaso.SiteID) ([]feaso.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []feaso.Scenario
	for _, s := range m.scenarios {
		if siteID == "" || s.SiteID == siteID {
			result = append(result, s.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) DeleteScenario(_ context.Context, id feaso.ScenarioID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenarios[id]; !ok {
		return feaso.ErrScenarioNotFound
	}
	delete(m.scenarios, id)
	return nil
}

var _ feaso.Store = (*Memory)(nil)
