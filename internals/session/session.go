package session

import (
	"sync"
	"time"

	"github.com/thebowwman/ordertrack/internals/domain"
	"github.com/thebowwman/ordertrack/internals/geo"
)

// ConnRef is a weak handle to a participant's transport connection. The
// session never manages the connection's lifecycle; it only needs to know
// whether the participant is currently reachable.
type ConnRef any

// Participant is one side of a tracking session.
type Participant struct {
	Role       domain.Role
	Coord      *domain.Coordinate
	SpeedMPS   float64
	HeadingDeg float64
	AccuracyM  float64

	// ReportedAt is the report timestamp of the newest stored location;
	// older reports are dropped to keep the stored coordinate monotonic.
	ReportedAt time.Time

	// AcceptedAt is the wall-clock instant of the last update that cleared
	// the debounce gate. Reports inside the window after it are coalesced.
	AcceptedAt time.Time

	Paused bool
	Conn   ConnRef
}

func (p *Participant) Connected() bool { return p != nil && p.Conn != nil }

// TrackingSession is the live state for one order, from placement to
// delivery or cancellation. All mutation happens under the session lock;
// the engine serializes every operation for one order through it.
type TrackingSession struct {
	OrderID   string
	CreatedAt time.Time

	mu           sync.Mutex
	Status       domain.OrderStatus
	Participants map[domain.Role]*Participant
	LastETA      *geo.ETA
	UpdatedAt    time.Time
}

func newSession(orderID string, now time.Time) *TrackingSession {

	return &TrackingSession{
		OrderID:      orderID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       domain.StatusAwaitingAssignment,
		Participants: make(map[domain.Role]*Participant),
	}
}

func (s *TrackingSession) Lock()   { s.mu.Lock() }
func (s *TrackingSession) Unlock() { s.mu.Unlock() }

// Participant returns the slot for role, or nil. Caller holds the lock.
func (s *TrackingSession) Participant(role domain.Role) *Participant {
	return s.Participants[role]
}

// Attach fills the role's participant slot, creating it on first use.
// Caller holds the lock.
func (s *TrackingSession) Attach(role domain.Role) *Participant {
	p := s.Participants[role]
	if p == nil {
		p = &Participant{Role: role}
		s.Participants[role] = p
	}
	return p
}

// Terminal reports whether the session reached Delivered or Cancelled.
// Caller holds the lock.
func (s *TrackingSession) Terminal() bool { return s.Status.Terminal() }

func (s *TrackingSession) terminalLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Status.Terminal()
}
