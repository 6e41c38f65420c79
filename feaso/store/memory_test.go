package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/feaso/feasotest"
	"github.com/warp/feasibility-engine/feaso/store"
)

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveSite(ctx, feasotest.Site()))
	require.NoError(t, m.SaveScenario(ctx, feasotest.SellScenario()))
	require.NoError(t, m.SaveScenario(ctx, feasotest.HoldScenario()))
	return m
}

func TestMemory_Load(t *testing.T) {
	// GIVEN: A site with a sell scenario and a hold scenario linked to it
	m := seeded(t)

	// WHEN: Loading the hold scenario
	b, err := feaso.Load(context.Background(), m, feasotest.HoldScenario().ID)

	// THEN: The site and linked scenario come with it
	require.NoError(t, err)
	assert.Equal(t, feasotest.Site().ID, b.Site.ID)
	require.NotNil(t, b.Linked)
	assert.Equal(t, feasotest.SellScenario().ID, b.Linked.ID)
	assert.NotEmpty(t, b.Simulate())
}

func TestMemory_StoresCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveSite(ctx, feasotest.Site()))

	s := feasotest.SellScenario()
	require.NoError(t, m.SaveScenario(ctx, s))
	s.Costs[0].Amount = decimal.NewFromInt(1)

	got, err := m.GetScenario(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Costs[0].Amount.Equal(decimal.NewFromInt(1)), "caller mutation leaked into the store")

	got.Costs[0].Amount = decimal.NewFromInt(2)
	again, err := m.GetScenario(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, again.Costs[0].Amount.Equal(decimal.NewFromInt(2)), "returned scenario aliases the store")
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.GetSite(ctx, "nowhere")
	assert.ErrorIs(t, err, feaso.ErrSiteNotFound)

	_, err = m.GetScenario(ctx, "nothing")
	assert.ErrorIs(t, err, feaso.ErrScenarioNotFound)

	err = m.SaveScenario(ctx, feasotest.SellScenario())
	assert.ErrorIs(t, err, feaso.ErrSiteNotFound)
	assert.True(t, feaso.IsNotFound(err))

	assert.ErrorIs(t, m.DeleteScenario(ctx, "nothing"), feaso.ErrScenarioNotFound)
}

func TestMemory_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	all, err := m.ListScenarios(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].ID < all[1].ID, "sorted by id")

	none, err := m.ListScenarios(ctx, "elsewhere")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, m.DeleteScenario(ctx, feasotest.SellScenario().ID))
	_, err = feaso.Load(ctx, m, feasotest.HoldScenario().ID)
	assert.ErrorIs(t, err, feaso.ErrScenarioNotFound, "hold scenario lost its link")

	sites, err := m.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}
