package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebowwman/ordertrack/internals/domain"
)

type fakeSessions map[string]bool

func (f fakeSessions) Has(orderID string) bool { return f[orderID] }

func testRoute() domain.Route {
	return domain.NewRoute(
		domain.Coordinate{Lat: 12.97, Lng: 77.59},
		domain.Coordinate{Lat: 12.98, Lng: 77.60},
		domain.Coordinate{Lat: 12.99, Lng: 77.61},
	)
}

func TestStore_SetRouteUnknownOrder(t *testing.T) {
	s := NewStore(fakeSessions{})
	err := s.SetRoute("ord-1", testRoute())
	assert.ErrorIs(t, err, domain.ErrUnknownOrder)
}

func TestStore_SetRouteRejectsBadCoordinates(t *testing.T) {
	s := NewStore(fakeSessions{"ord-1": true})
	bad := domain.NewRoute(domain.Coordinate{Lat: 91, Lng: 0})
	assert.ErrorIs(t, s.SetRoute("ord-1", bad), domain.ErrInvalidInput)
}

func TestStore_SetRouteReplacesWholesale(t *testing.T) {
	s := NewStore(fakeSessions{"ord-1": true})

	require.NoError(t, s.SetRoute("ord-1", testRoute()))

	replacement := domain.NewRoute(domain.Coordinate{Lat: 1, Lng: 1})
	require.NoError(t, s.SetRoute("ord-1", replacement))

	got, err := s.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestStore_GetRemainingRoute(t *testing.T) {
	s := NewStore(fakeSessions{"ord-1": true})
	require.NoError(t, s.SetRoute("ord-1", testRoute()))

	tests := []struct {
		name      string
		from      domain.Coordinate
		wantLen   int
		wantFirst int // ordinal of first remaining waypoint
	}{
		{name: "at start", from: domain.Coordinate{Lat: 12.97, Lng: 77.59}, wantLen: 3, wantFirst: 0},
		{name: "mid route", from: domain.Coordinate{Lat: 12.981, Lng: 77.601}, wantLen: 2, wantFirst: 1},
		{name: "near end", from: domain.Coordinate{Lat: 12.989, Lng: 77.609}, wantLen: 1, wantFirst: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rem, err := s.GetRemainingRoute("ord-1", test.from)
			require.NoError(t, err)
			require.Len(t, rem, test.wantLen)
			assert.Equal(t, test.wantFirst, rem[0].Ordinal)
		})
	}
}

func TestStore_GetRemainingRouteNoRouteSet(t *testing.T) {
	s := NewStore(fakeSessions{"ord-1": true})

	rem, err := s.GetRemainingRoute("ord-1", domain.Coordinate{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	assert.Empty(t, rem)
}
