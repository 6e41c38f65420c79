/*
demos.go - Demo datasets for testing and demonstrations

PURPOSE:
  Provides pre-built sites and scenarios that populate the database with
  realistic data. Each demo is a YAML document (site, scenario and an
  optional linked sell scenario) embedded from demos/.

AVAILABLE DEMOS:
  townhouses-sell:  Eight townhouses in VIC, senior debt only, build and sell
  apartments-btr:   Thirty apartments in NSW held as build-to-rent, linked
                    to their sell scenario
  mixed-use-qld:    Retail + apartments in QLD, margin scheme GST, mezzanine,
                    milestone build payments and a stepped senior rate

HOW DEMOS WORK:
 1. Reset database (clear all data)
 2. Parse the document via factory
 3. Save the site
 4. Save the linked sell scenario, then the scenario itself

USAGE VIA API:
  POST /api/demos/load
  {"demo_id": "apartments-btr"}

ADDING NEW DEMOS:
 1. Drop a YAML document in demos/
 2. Add it to the 'demos' slice with ID, name, description and file

NOTE:
  Loading a demo resets the database. Only use in development/demo
  environments.

SEE ALSO:
  - factory/scenario.go: Document format
*/
package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/feasibility-engine/factory"
	"github.com/warp/feasibility-engine/feaso"
)

//go:embed demos/*.yaml
var demoFiles embed.FS

// =============================================================================
// DEMO DEFINITIONS
// =============================================================================

type demo struct {
	DemoDTO
	file string
}

var demos = []demo{
	{
		DemoDTO: DemoDTO{
			ID:          "townhouses-sell",
			Name:        "Townhouses",
			Description: "Eight townhouses in Box Hill, senior debt at 65% LTC, build and sell",
			Strategy:    string(feaso.StrategySell),
		},
		file: "demos/townhouses-sell.yaml",
	},
	{
		DemoDTO: DemoDTO{
			ID:          "apartments-btr",
			Name:        "Build to rent",
			Description: "Thirty apartments in Parramatta, refinanced and held for ten years",
			Strategy:    string(feaso.StrategyHold),
		},
		file: "demos/apartments-btr.yaml",
	},
	{
		DemoDTO: DemoDTO{
			ID:          "mixed-use-qld",
			Name:        "Mixed use",
			Description: "Southport retail and apartments under the margin scheme with mezzanine debt",
			Strategy:    string(feaso.StrategySell),
		},
		file: "demos/mixed-use-qld.yaml",
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListDemos returns all available demo datasets.
func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	dtos := make([]DemoDTO, len(demos))
	for i, d := range demos {
		dtos[i] = d.DemoDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentDemo returns the currently loaded demo, if any.
func (h *Handler) GetCurrentDemo(w http.ResponseWriter, r *http.Request) {
	h.demoMu.RLock()
	current := h.currentDemo
	h.demoMu.RUnlock()

	for _, d := range demos {
		if d.ID == current {
			writeJSON(w, http.StatusOK, d.DemoDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadDemo resets the database and loads a demo dataset.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	var req LoadDemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := demoBundle(req.DemoID); err != nil {
		respondError(w, "Failed to load demo", err)
		return
	}

	h.demoMu.Lock()
	defer h.demoMu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentDemo = ""

	b, err := h.loadDemo(ctx, req.DemoID)
	if err != nil {
		respondError(w, "Failed to load demo", err)
		return
	}
	h.currentDemo = req.DemoID

	resp := map[string]any{
		"demo_id":     req.DemoID,
		"site_id":     b.Site.ID,
		"scenario_id": b.Scenario.ID,
	}
	if b.Linked != nil {
		resp["linked_scenario_id"] = b.Linked.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.demoMu.Lock()
	defer h.demoMu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentDemo = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// LOADER
// =============================================================================

// demoBundle parses a demo's document.
func demoBundle(id string) (feaso.Bundle, error) {
	for _, d := range demos {
		if d.ID != id {
			continue
		}
		data, err := demoFiles.ReadFile(d.file)
		if err != nil {
			return feaso.Bundle{}, err
		}
		b, err := factory.ParseDocument(data)
		if err != nil {
			return feaso.Bundle{}, fmt.Errorf("demo %s: %w", id, err)
		}
		return b, nil
	}
	return feaso.Bundle{}, fmt.Errorf("%w: unknown demo %q", errInvalidRequest, id)
}

func (h *Handler) loadDemo(ctx context.Context, id string) (feaso.Bundle, error) {
	b, err := demoBundle(id)
	if err != nil {
		return feaso.Bundle{}, err
	}

	if err := h.Store.SaveSite(ctx, b.Site); err != nil {
		return feaso.Bundle{}, err
	}
	if b.Linked != nil {
		if b.Linked.SiteID == "" {
			b.Linked.SiteID = b.Site.ID
		}
		if err := h.Store.SaveScenario(ctx, *b.Linked); err != nil {
			return feaso.Bundle{}, err
		}
	}
	if err := h.Store.SaveScenario(ctx, b.Scenario); err != nil {
		return feaso.Bundle{}, err
	}
	return b, nil
}
