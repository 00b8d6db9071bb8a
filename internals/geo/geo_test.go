package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebowwman/ordertrack/internals/domain"
)

func TestHaversineDistance_Symmetric(t *testing.T) {
	tests := []struct {
		a, b domain.Coordinate
	}{
		{domain.Coordinate{Lat: 12.97, Lng: 77.59}, domain.Coordinate{Lat: 12.98, Lng: 77.60}},
		{domain.Coordinate{Lat: 0, Lng: 0}, domain.Coordinate{Lat: -45, Lng: 170}},
		{domain.Coordinate{Lat: 89.9, Lng: -179.9}, domain.Coordinate{Lat: -89.9, Lng: 179.9}},
	}

	for _, test := range tests {
		assert.InDelta(t, HaversineDistance(test.a, test.b), HaversineDistance(test.b, test.a), 1e-9)
	}
}

func TestHaversineDistance_ZeroForSamePoint(t *testing.T) {
	p := domain.Coordinate{Lat: 12.97, Lng: 77.59}
	assert.Zero(t, HaversineDistance(p, p))
}

func TestHaversineDistance_KnownDistance(t *testing.T) {
	// Roughly 1.55km across central Bengaluru.
	a := domain.Coordinate{Lat: 12.97, Lng: 77.59}
	b := domain.Coordinate{Lat: 12.98, Lng: 77.60}
	assert.InDelta(t, 1550, HaversineDistance(a, b), 50)
}

func TestRouteLength(t *testing.T) {
	tests := []struct {
		name     string
		route    domain.Route
		expected float64
		delta    float64
	}{
		{name: "empty", route: domain.Route{}, expected: 0},
		{name: "single waypoint", route: domain.NewRoute(domain.Coordinate{Lat: 1, Lng: 1}), expected: 0},
		{
			name: "two legs sum",
			route: domain.NewRoute(
				domain.Coordinate{Lat: 12.97, Lng: 77.59},
				domain.Coordinate{Lat: 12.98, Lng: 77.60},
				domain.Coordinate{Lat: 12.99, Lng: 77.61},
			),
			expected: 2 * HaversineDistance(domain.Coordinate{Lat: 12.97, Lng: 77.59}, domain.Coordinate{Lat: 12.98, Lng: 77.60}),
			delta:    5,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.InDelta(t, test.expected, RouteLength(test.route), test.delta)
		})
	}
}

func TestETAForDistance(t *testing.T) {
	eta, err := ETAForDistance(99.9, 5, DefaultArrivedThresholdMeters)
	require.NoError(t, err)
	assert.True(t, eta.Arrived)

	eta, err = ETAForDistance(100, 5, DefaultArrivedThresholdMeters)
	require.NoError(t, err)
	assert.False(t, eta.Arrived)
	assert.Equal(t, 20*time.Second, eta.Duration)

	// ceil, not truncate
	eta, err = ETAForDistance(101, 5, DefaultArrivedThresholdMeters)
	require.NoError(t, err)
	assert.Equal(t, 21*time.Second, eta.Duration)
}

func TestETAForDistance_RejectsBadSpeed(t *testing.T) {
	for _, speed := range []float64{0, -1} {
		_, err := ETAForDistance(500, speed, DefaultArrivedThresholdMeters)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestEstimateETA_MonotonicOnApproach(t *testing.T) {
	dest := domain.Coordinate{Lat: 12.99, Lng: 77.61}

	// Agent positions strictly closer to the destination.
	positions := []domain.Coordinate{
		{Lat: 12.90, Lng: 77.55},
		{Lat: 12.94, Lng: 77.58},
		{Lat: 12.97, Lng: 77.60},
		{Lat: 12.985, Lng: 77.605},
	}

	prev := time.Duration(1<<62 - 1)
	for _, pos := range positions {
		eta, err := EstimateETA(domain.NewRoute(pos, dest), 5, DefaultArrivedThresholdMeters)
		require.NoError(t, err)
		if eta.Arrived {
			break
		}
		assert.LessOrEqual(t, eta.Duration, prev)
		prev = eta.Duration
	}
}

func TestNearestWaypointIndex(t *testing.T) {
	route := domain.NewRoute(
		domain.Coordinate{Lat: 12.97, Lng: 77.59},
		domain.Coordinate{Lat: 12.98, Lng: 77.60},
		domain.Coordinate{Lat: 12.99, Lng: 77.61},
	)

	tests := []struct {
		name     string
		point    domain.Coordinate
		expected int
	}{
		{name: "at first", point: domain.Coordinate{Lat: 12.97, Lng: 77.59}, expected: 0},
		{name: "near last", point: domain.Coordinate{Lat: 12.991, Lng: 77.611}, expected: 2},
		{name: "near middle", point: domain.Coordinate{Lat: 12.979, Lng: 77.599}, expected: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, NearestWaypointIndex(route, test.point))
		})
	}
}

func TestNearestWaypointIndex_TiesAndEmpty(t *testing.T) {
	assert.Equal(t, -1, NearestWaypointIndex(domain.Route{}, domain.Coordinate{}))

	// Duplicate waypoints tie; earliest index wins.
	p := domain.Coordinate{Lat: 12.97, Lng: 77.59}
	route := domain.NewRoute(p, p, p)
	assert.Equal(t, 0, NearestWaypointIndex(route, p))
}
