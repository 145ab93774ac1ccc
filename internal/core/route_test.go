package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRouteKindHasSpec(t *testing.T) {
	for _, kind := range AllRouteKinds() {
		spec := kind.Spec()
		assert.Equal(t, kind, spec.Kind, "route %d missing from routeSpecs", kind)
		assert.NotEmpty(t, spec.Name)
		assert.NotEmpty(t, spec.Path)
		assert.Positive(t, spec.Credits)

		resolved, ok := ResolveRoute(spec.Path)
		require.True(t, ok)
		assert.Equal(t, kind, resolved)
	}
}

func TestResolveRouteUnknown(t *testing.T) {
	_, ok := ResolveRoute("/payroll")
	assert.False(t, ok)
	assert.Equal(t, "unknown", RouteUnknown.String())
	assert.False(t, RouteUnknown.Valid())
}

func TestValidRoutePathsSorted(t *testing.T) {
	assert.Equal(t, []string{
		"/analytics", "/chat", "/forecasts", "/reports", "/tax", "/transactions",
	}, ValidRoutePaths())
}

func TestChatCostsMoreThanDataRoutes(t *testing.T) {
	assert.Greater(t, RouteChat.Spec().Credits, RouteTransactions.Spec().Credits)
	assert.Greater(t, RouteForecasts.Spec().Credits, RouteReports.Spec().Credits)
}
