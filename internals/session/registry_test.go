package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebowwman/ordertrack/internals/domain"
)

func TestRegistry_CreateRejectsDuplicate(t *testing.T) {
	r := NewRegistry()

	_, err := r.Create("ord-1")
	require.NoError(t, err)

	_, err = r.Create("ord-1")
	assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
}

func TestRegistry_CreateAllowsReuseAfterTerminal(t *testing.T) {
	r := NewRegistry()

	s, err := r.Create("ord-1")
	require.NoError(t, err)

	s.Lock()
	s.Status = domain.StatusCancelled
	s.Unlock()

	fresh, err := r.Create("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingAssignment, fresh.Status)
}

func TestRegistry_CreateRejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownOrder)
}

func TestRegistry_JoinRole(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("ord-1")
	require.NoError(t, err)

	connA, connB := struct{ name string }{"a"}, struct{ name string }{"b"}

	require.NoError(t, r.JoinRole("ord-1", domain.RoleCustomer, connA))

	// Second join on a filled role fails and keeps the first connection.
	err = r.JoinRole("ord-1", domain.RoleCustomer, connB)
	assert.ErrorIs(t, err, domain.ErrRoleAlreadyFilled)

	s, err := r.Get("ord-1")
	require.NoError(t, err)
	s.Lock()
	assert.Equal(t, connA, s.Participant(domain.RoleCustomer).Conn)
	s.Unlock()

	// The other role is independent.
	assert.NoError(t, r.JoinRole("ord-1", domain.RoleAgent, connB))
}

func TestRegistry_JoinRoleUnknownOrder(t *testing.T) {
	r := NewRegistry()
	err := r.JoinRole("nope", domain.RoleCustomer, struct{}{})
	assert.ErrorIs(t, err, domain.ErrUnknownOrder)
}

func TestRegistry_JoinRoleTerminalSession(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("ord-1")
	require.NoError(t, err)

	s.Lock()
	s.Status = domain.StatusDelivered
	s.Unlock()

	err = r.JoinRole("ord-1", domain.RoleAgent, struct{}{})
	assert.ErrorIs(t, err, domain.ErrSessionTerminal)
}

func TestRegistry_LeaveRetainsCoordinates(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("ord-1")
	require.NoError(t, err)

	require.NoError(t, r.JoinRole("ord-1", domain.RoleAgent, struct{}{}))

	loc := domain.Coordinate{Lat: 12.97, Lng: 77.59}
	s.Lock()
	s.Participant(domain.RoleAgent).Coord = &loc
	s.Unlock()

	require.NoError(t, r.Leave("ord-1", domain.RoleAgent))

	s.Lock()
	p := s.Participant(domain.RoleAgent)
	assert.False(t, p.Connected())
	assert.Equal(t, &loc, p.Coord)
	s.Unlock()

	// Reconnect after leave succeeds.
	assert.NoError(t, r.JoinRole("ord-1", domain.RoleAgent, struct{}{}))
}
