/*
demos_test.go - Tests for the demo datasets

PURPOSE:
	Every embedded demo must parse, validate, load into the store and
	simulate to a sensible result. These double as end-to-end tests of the
	factory, the sqlite store and the engine.
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/feasibility-engine/feaso"
)

func TestDemos_AllParse(t *testing.T) {
	for _, d := range demos {
		t.Run(d.ID, func(t *testing.T) {
			b, err := demoBundle(d.ID)
			require.NoError(t, err)
			assert.Equal(t, feaso.Strategy(d.Strategy), b.Scenario.Settings.Strategy)
			assert.NotEmpty(t, b.Site.ID)
			assert.Equal(t, b.Site.ID, b.Scenario.SiteID)
		})
	}
}

func TestDemos_LoadAndSimulate(t *testing.T) {
	for _, d := range demos {
		t.Run(d.ID, func(t *testing.T) {
			// GIVEN: A fresh server
			h, router := setupTestServer(t)

			// WHEN: Loading the demo
			rec := do(t, router, http.MethodPost, "/api/demos/load", LoadDemoRequest{DemoID: d.ID})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			loaded := decode[map[string]string](t, rec)

			// THEN: The scenario simulates with every debt repaid
			rec = do(t, router, http.MethodPost, "/api/scenarios/"+loaded["scenario_id"]+"/simulate", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[SimulateResponse](t, rec)
			require.NotEmpty(t, resp.Flows)
			last := resp.Flows[len(resp.Flows)-1]
			assert.True(t, last.Senior.Balance.IsZero(), "senior %s", last.Senior.Balance)
			assert.True(t, last.Mezzanine.Balance.IsZero(), "mezzanine %s", last.Mezzanine.Balance)
			assert.True(t, resp.Summary.TotalCost.IsPositive())
			assert.True(t, resp.Summary.GrossRevenue.IsPositive())

			// THEN: The demo is current
			rec = do(t, router, http.MethodGet, "/api/demos/current", nil)
			assert.Equal(t, d.ID, decode[DemoDTO](t, rec).ID)

			if linked, ok := loaded["linked_scenario_id"]; ok {
				_, err := h.Store.GetScenario(context.Background(), feaso.ScenarioID(linked))
				assert.NoError(t, err)
			}
		})
	}
}

func TestDemos_LoadReplacesData(t *testing.T) {
	// GIVEN: One demo loaded
	_, router := setupTestServer(t)
	rec := do(t, router, http.MethodPost, "/api/demos/load", LoadDemoRequest{DemoID: "apartments-btr"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: Loading another
	rec = do(t, router, http.MethodPost, "/api/demos/load", LoadDemoRequest{DemoID: "townhouses-sell"})
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: Only the second demo's data remains
	rec = do(t, router, http.MethodGet, "/api/scenarios", nil)
	scenarios := decode[[]ScenarioDTO](t, rec)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "box-hill-sell", scenarios[0].Config.ID)
}

func TestDemos_ConcurrentLoadsLeaveOneDemo(t *testing.T) {
	// GIVEN: Clients loading different demos and polling the current one at once
	_, router := setupTestServer(t)

	var wg sync.WaitGroup
	codes := make([]int, 3*len(demos))
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%3 == 2 {
				codes[i] = do(t, router, http.MethodGet, "/api/demos/current", nil).Code
				return
			}
			body := `{"demo_id":"` + demos[i%len(demos)].ID + `"}`
			codes[i] = do(t, router, http.MethodPost, "/api/demos/load", body).Code
		}(i)
	}
	wg.Wait()

	// THEN: Every request succeeded
	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}

	// THEN: The stored data belongs to the demo reported as current
	current := decode[DemoDTO](t, do(t, router, http.MethodGet, "/api/demos/current", nil))
	b, err := demoBundle(current.ID)
	require.NoError(t, err)
	sites := decode[[]SiteDTO](t, do(t, router, http.MethodGet, "/api/sites", nil))
	require.Len(t, sites, 1)
	assert.Equal(t, string(b.Site.ID), sites[0].ID)
}

func TestDemos_UnknownLeavesDataAlone(t *testing.T) {
	// GIVEN: A loaded demo
	_, router := setupTestServer(t)
	rec := do(t, router, http.MethodPost, "/api/demos/load", LoadDemoRequest{DemoID: "townhouses-sell"})
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: Loading a demo that does not exist
	rec = do(t, router, http.MethodPost, "/api/demos/load", LoadDemoRequest{DemoID: "castle"})

	// THEN: The request is rejected before anything is reset
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/sites", nil)
	assert.Len(t, decode[[]SiteDTO](t, rec), 1)
}

func TestDemos_ListAndReset(t *testing.T) {
	_, router := setupTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/demos", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]DemoDTO](t, rec), len(demos))

	rec = do(t, router, http.MethodPost, "/api/demos/load", LoadDemoRequest{DemoID: "mixed-use-qld"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/sites", nil)
	assert.Empty(t, decode[[]SiteDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/demos/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}
