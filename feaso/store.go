/*
store.go - Persistence interface for sites and scenarios

PURPOSE:
  The engine never touches storage. Collaborators (the API, the CLI) load a
  scenario, its site and its linked scenario through this interface, then
  hand plain values to Simulate.

IMPLEMENTATIONS:
  - feaso/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - engine.go: Simulate takes the values Load returns
*/
package feaso

import (
	"context"
	"fmt"
)

// Store persists sites and scenarios. Saves are upserts keyed by ID.
type Store interface {
	SaveSite(ctx context.Context, site Site) error
	GetSite(ctx context.Context, id SiteID) (Site, error)
	ListSites(ctx context.Context) ([]Site, error)

	SaveScenario(ctx context.Context, s Scenario) error
	GetScenario(ctx context.Context, id ScenarioID) (Scenario, error)
	// ListScenarios returns the scenarios of a site, or all when siteID is empty.
	ListScenarios(ctx context.Context, siteID SiteID) ([]Scenario, error)
	DeleteScenario(ctx context.Context, id ScenarioID) error
}

// Bundle is everything Simulate needs for one scenario.
type Bundle struct {
	Scenario Scenario
	Site     Site
	Linked   *Scenario
}

// Load fetches a scenario with its site and, when set, its linked scenario.
func Load(ctx context.Context, st Store, id ScenarioID) (Bundle, error) {
	s, err := st.GetScenario(ctx, id)
	if err != nil {
		return Bundle{}, err
	}
	site, err := st.GetSite(ctx, s.SiteID)
	if err != nil {
		return Bundle{}, fmt.Errorf("scenario %s: %w", id, err)
	}
	b := Bundle{Scenario: s, Site: site}
	if s.LinkedScenarioID != "" {
		linked, err := st.GetScenario(ctx, s.LinkedScenarioID)
		if err != nil {
			return Bundle{}, fmt.Errorf("linked scenario %s: %w", s.LinkedScenarioID, err)
		}
		if err := ValidateLink(s, &linked); err != nil {
			return Bundle{}, err
		}
		b.Linked = &linked
	}
	return b, nil
}

// Simulate runs the bundle.
func (b Bundle) Simulate() []MonthlyFlow {
	return Simulate(b.Scenario, b.Site, b.Linked)
}
