// Package route keeps the planned route per order. Routes are planning
// data: set wholesale when an agent is assigned, queried for the remaining
// suffix as the agent moves, never edited in place.
package route

import (
	"fmt"
	"sync"

	"github.com/thebowwman/ordertrack/internals/domain"
	"github.com/thebowwman/ordertrack/internals/geo"
)

// Sessions is the slice of the session registry the store needs: routes
// only exist for orders that have a session.
type Sessions interface {
	Has(orderID string) bool
}

type Store struct {
	sessions Sessions

	mu sync.RWMutex
	m  map[string]domain.Route
}

func NewStore(sessions Sessions) *Store {
	return &Store{sessions: sessions, m: make(map[string]domain.Route)}
}

// SetRoute replaces the order's route atomically.
func (s *Store) SetRoute(orderID string, r domain.Route) error {
	if !s.sessions.Has(orderID) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
	}
	if !r.IsValid() {
		return fmt.Errorf("%w: route has out-of-range coordinates", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	s.m[orderID] = r
	s.mu.Unlock()
	return nil
}

// Get returns the stored route, which may be empty if none was set.
func (s *Store) Get(orderID string) (domain.Route, error) {
	if !s.sessions.Has(orderID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[orderID], nil
}

// GetRemainingRoute returns the route suffix starting at the waypoint
// nearest to from. The agent need not be exactly on-route; snapping to the
// nearest waypoint keeps remaining-distance math stable either way.
func (s *Store) GetRemainingRoute(orderID string, from domain.Coordinate) (domain.Route, error) {
	r, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}

	idx := geo.NearestWaypointIndex(r, from)
	if idx < 0 {
		return domain.Route{}, nil
	}
	return r[idx:], nil
}

// Drop removes the order's route, used when a terminal session is replaced.
func (s *Store) Drop(orderID string) {
	s.mu.Lock()
	delete(s.m, orderID)
	s.mu.Unlock()
}
