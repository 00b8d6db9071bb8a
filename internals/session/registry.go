// Package session owns the in-memory tracking state: one TrackingSession
// per order, at most one customer and one delivery agent attached to each.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/thebowwman/ordertrack/internals/domain"
)

// Registry maps order IDs to live tracking sessions. The registry lock
// only guards the mapping table; per-session state has its own lock, so
// operations on different orders never contend.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*TrackingSession
	now      func() time.Time
}

func NewRegistry() *Registry {

	return &Registry{
		sessions: make(map[string]*TrackingSession),
		now:      time.Now,
	}
}

// Create registers a fresh session for orderID. An existing non-terminal
// session is a conflict; a terminal one may be replaced, which lets an
// order ID be reused after delivery or cancellation.
//
// The terminal check happens outside the registry lock: engine operations
// hold a session lock while reaching back into the registry, so nesting a
// session lock under the registry lock here would invert that order. A
// terminal session never becomes live again, which makes the unlocked
// check sound as long as the mapping is re-verified before the swap.
func (r *Registry) Create(orderID string) (*TrackingSession, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: empty order id", domain.ErrInvalidInput)
	}

	for {
		r.mu.Lock()
		existing, ok := r.sessions[orderID]
		if !ok {
			s := newSession(orderID, r.now())
			r.sessions[orderID] = s
			r.mu.Unlock()
			return s, nil
		}
		r.mu.Unlock()

		if !existing.terminalLocked() {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, orderID)
		}

		r.mu.Lock()
		if r.sessions[orderID] == existing {
			s := newSession(orderID, r.now())
			r.sessions[orderID] = s
			r.mu.Unlock()
			return s, nil
		}
		// Lost a race with another Create; re-evaluate the new mapping.
		r.mu.Unlock()
	}
}

func (r *Registry) Get(orderID string) (*TrackingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
	}
	return s, nil
}

// Has reports whether a session exists for orderID; the route store uses
// it to reject routes for orders that were never placed.
func (r *Registry) Has(orderID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[orderID]
	return ok
}

// JoinRole attaches a connection to the role's participant slot. A slot
// with a live connection stays with its first owner; a second join fails
// rather than silently replacing it. A slot whose connection was cleared
// by Leave may be re-joined, which is how reconnection works.
func (r *Registry) JoinRole(orderID string, role domain.Role, conn ConnRef) error {
	s, err := r.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.Terminal() {
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminal, orderID, s.Status)
	}
	if p := s.Participant(role); p.Connected() {
		return fmt.Errorf("%w: %s on %s", domain.ErrRoleAlreadyFilled, role, orderID)
	}
	s.Attach(role).Conn = conn
	return nil
}

// Leave clears the role's connection reference. Coordinates and status
// survive so a reconnecting participant resumes where it left off.
func (r *Registry) Leave(orderID string, role domain.Role) error {
	s, err := r.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if p := s.Participant(role); p != nil {
		p.Conn = nil
	}
	return nil
}
