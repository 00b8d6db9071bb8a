// Package engine orchestrates live delivery tracking: it ingests location
// reports, recomputes ETA and proximity, drives order status transitions,
// and rate-limits fan-out per participant. All engine calls are synchronous
// operations on in-memory state; outbound events are handed to a Publisher
// as fire-and-forget publishes.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thebowwman/ordertrack/internals/domain"
	"github.com/thebowwman/ordertrack/internals/geo"
	"github.com/thebowwman/ordertrack/internals/route"
	"github.com/thebowwman/ordertrack/internals/session"
)

// Publisher is the transport side of the engine: at-most-once delivery to
// whichever participants are currently connected. The engine updates state
// regardless, so a reconnecting client catches up from the next snapshot.
type Publisher interface {
	Publish(orderID string, role domain.Role, event any)
	Broadcast(orderID string, event any)
}

// NopPublisher drops every event; handy when running the engine headless.
type NopPublisher struct{}

func (NopPublisher) Publish(string, domain.Role, any) {}
func (NopPublisher) Broadcast(string, any)            {}

type Config struct {
	// DebounceWindow is the minimum interval between accepted updates per
	// participant; reports inside the window are coalesced, latest wins.
	DebounceWindow time.Duration

	// ArrivedThresholdM is the remaining distance below which the order
	// counts as arrived.
	ArrivedThresholdM float64

	// StaleThreshold bounds the age of the agent's last report before the
	// session counts as having a connection issue.
	StaleThreshold time.Duration

	// DefaultSpeedMPS feeds the ETA model when the agent reports no speed.
	DefaultSpeedMPS float64

	// Now is the engine clock; tests swap it out.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = time.Second
	}
	if c.ArrivedThresholdM <= 0 {
		c.ArrivedThresholdM = geo.DefaultArrivedThresholdMeters
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 30 * time.Second
	}
	if c.DefaultSpeedMPS <= 0 {
		c.DefaultSpeedMPS = 5.56 // ~20 km/h urban average
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Engine struct {
	cfg      Config
	registry *session.Registry
	routes   *route.Store
	pub      Publisher
	log      *slog.Logger
}

func New(cfg Config, registry *session.Registry, routes *route.Store, pub Publisher, log *slog.Logger) *Engine {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		cfg:      cfg.withDefaults(),
		registry: registry,
		routes:   routes,
		pub:      pub,
		log:      log.With("component", "engine"),
	}
}

// LocationReport is one inbound position fix from a participant.
type LocationReport struct {
	Coord      domain.Coordinate
	At         time.Time
	SpeedMPS   float64
	HeadingDeg float64
	AccuracyM  float64
}

// Snapshot is the engine's answer to requestLocationUpdate: the current
// facts for one order, with no state change.
type Snapshot struct {
	OrderID        string
	Status         domain.OrderStatus
	DeliveryCoords *domain.Coordinate
	CustomerCoords *domain.Coordinate
	Route          domain.Route
	ETA            *geo.ETA
}

func (s Snapshot) ConnectedEvent() ConnectedEvent {
	return ConnectedEvent{
		Type:           EventConnected,
		OrderID:        s.OrderID,
		Status:         s.Status.String(),
		DeliveryCoords: s.DeliveryCoords,
		CustomerCoords: s.CustomerCoords,
		RouteCoords:    s.Route.Coords(),
		ETA:            etaPayload(s.ETA),
	}
}

func etaPayload(e *geo.ETA) *ETAPayload {
	if e == nil {
		return nil
	}
	return &ETAPayload{Arrived: e.Arrived, Seconds: e.Seconds()}
}

func coordCopy(c *domain.Coordinate) *domain.Coordinate {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// PlaceOrder creates the tracking session and attaches the customer at its
// current position. Re-invocation for an existing non-terminal order
// returns that session unchanged; the UI retries this call freely.
func (e *Engine) PlaceOrder(orderID string, customer domain.Coordinate) (*session.TrackingSession, error) {
	if !customer.IsValid() {
		return nil, fmt.Errorf("%w: bad customer coordinate", domain.ErrInvalidInput)
	}

	s, err := e.registry.Create(orderID)
	if err != nil {
		// Retried placements are fine: hand back the live session.
		if errors.Is(err, domain.ErrDuplicateOrder) {
			return e.registry.Get(orderID)
		}
		return nil, err
	}

	// A reused order ID must not inherit the previous incarnation's route.
	e.routes.Drop(orderID)

	s.Lock()
	p := s.Attach(domain.RoleCustomer)
	p.Coord = &customer
	p.ReportedAt = e.cfg.Now()
	s.Unlock()

	e.log.Info("order placed", "order_id", orderID)
	return s, nil
}

// AssignAgent attaches the delivery agent, stores the planned route, and
// moves the order to Assigned.
func (e *Engine) AssignAgent(orderID string, agent domain.Coordinate, r domain.Route) error {
	if !agent.IsValid() {
		return fmt.Errorf("%w: bad agent coordinate", domain.ErrInvalidInput)
	}
	if !r.IsValid() {
		return fmt.Errorf("%w: route has out-of-range coordinates", domain.ErrInvalidInput)
	}

	s, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	if s.Terminal() {
		s.Unlock()
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminal, orderID, s.Status)
	}
	if s.Status != domain.StatusAwaitingAssignment {
		s.Unlock()
		return fmt.Errorf("%w: assign requires awaiting_assignment, got %s", domain.ErrInvalidTransition, s.Status)
	}
	if err := e.routes.SetRoute(orderID, r); err != nil {
		s.Unlock()
		return err
	}

	p := s.Attach(domain.RoleAgent)
	p.Coord = &agent
	p.ReportedAt = e.cfg.Now()
	s.Status = domain.StatusAssigned
	s.UpdatedAt = e.cfg.Now()

	assigned := AssignedEvent{
		Type:           EventOrderAssigned,
		OrderID:        orderID,
		DeliveryCoords: coordCopy(p.Coord),
		CustomerCoords: coordCopy(s.Participant(domain.RoleCustomer).Coord),
		RouteCoords:    r.Coords(),
	}
	statusEv := StatusUpdateEvent{Type: EventOrderStatusUpdate, OrderID: orderID, Status: s.Status.String()}
	s.Unlock()

	e.pub.Publish(orderID, domain.RoleCustomer, assigned)
	e.pub.Publish(orderID, domain.RoleCustomer, statusEv)
	e.log.Info("agent assigned", "order_id", orderID, "route_waypoints", len(r))
	return nil
}

// ReportLocation ingests a position fix. Reports with a timestamp not
// newer than the stored one are dropped; reports inside the debounce
// window update stored state but do not fan out (coalesced, latest wins).
// An accepted agent report recomputes the ETA and may auto-complete an
// in-transit order once it is inside the arrival threshold.
func (e *Engine) ReportLocation(orderID string, role domain.Role, rep LocationReport) error {
	if !rep.Coord.IsValid() {
		return fmt.Errorf("%w: bad coordinate", domain.ErrInvalidInput)
	}

	s, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	if s.Terminal() {
		s.Unlock()
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminal, orderID, s.Status)
	}
	p := s.Participant(role)
	if p == nil {
		s.Unlock()
		return fmt.Errorf("%w: %s has not joined order %s", domain.ErrInvalidInput, role, orderID)
	}
	if p.Paused {
		s.Unlock()
		e.log.Debug("report dropped, tracking paused", "order_id", orderID, "role", role)
		return nil
	}
	if !rep.At.After(p.ReportedAt) {
		s.Unlock()
		e.log.Debug("stale report dropped", "order_id", orderID, "role", role, "at", rep.At)
		return nil
	}

	p.Coord = &rep.Coord
	p.SpeedMPS = rep.SpeedMPS
	p.HeadingDeg = rep.HeadingDeg
	p.AccuracyM = rep.AccuracyM
	p.ReportedAt = rep.At

	now := e.cfg.Now()
	if now.Sub(p.AcceptedAt) < e.cfg.DebounceWindow {
		s.Unlock()
		e.log.Debug("report coalesced inside debounce window", "order_id", orderID, "role", role)
		return nil
	}
	p.AcceptedAt = now
	s.UpdatedAt = now

	events := e.acceptedLocked(s, role, rep)
	s.Unlock()

	for _, ev := range events {
		e.pub.Publish(orderID, ev.to, ev.payload)
	}
	return nil
}

type outbound struct {
	to      domain.Role
	payload any
}

// acceptedLocked builds the fan-out for an accepted report. Caller holds
// the session lock.
func (e *Engine) acceptedLocked(s *session.TrackingSession, role domain.Role, rep LocationReport) []outbound {
	locEv := LocationUpdateEvent{OrderID: s.OrderID, Coords: rep.Coord}

	if role == domain.RoleCustomer {
		locEv.Type = EventCustomerLocationUpdate
		return []outbound{{to: domain.RoleAgent, payload: locEv}}
	}

	locEv.Type = EventDeliveryLocationUpdate
	events := []outbound{{to: domain.RoleCustomer, payload: locEv}}

	dist, ok := e.remainingDistanceLocked(s, rep.Coord)
	if !ok {
		return events
	}

	speed := rep.SpeedMPS
	if speed <= 0 {
		speed = e.cfg.DefaultSpeedMPS
	}
	eta, err := geo.ETAForDistance(dist, speed, e.cfg.ArrivedThresholdM)
	if err != nil {
		e.log.Warn("eta computation failed", "order_id", s.OrderID, "error", err)
		return events
	}
	s.LastETA = &eta

	if dist < e.cfg.ArrivedThresholdM && s.Status == domain.StatusInTransit {
		s.Status = domain.StatusDelivered
		events = append(events, outbound{to: domain.RoleCustomer, payload: StatusUpdateEvent{
			Type:    EventOrderStatusUpdate,
			OrderID: s.OrderID,
			Status:  s.Status.String(),
			ETA:     etaPayload(&eta),
		}}, outbound{to: domain.RoleAgent, payload: StatusUpdateEvent{
			Type:    EventOrderStatusUpdate,
			OrderID: s.OrderID,
			Status:  s.Status.String(),
			ETA:     etaPayload(&eta),
		}})
		e.log.Info("order auto-delivered inside arrival threshold", "order_id", s.OrderID, "remaining_m", dist)
	}
	return events
}

// remainingDistanceLocked computes the distance still to cover: agent to
// the nearest route waypoint plus the route suffix from there. Without a
// route it falls back to the straight line to the customer. Caller holds
// the session lock.
func (e *Engine) remainingDistanceLocked(s *session.TrackingSession, agent domain.Coordinate) (float64, bool) {
	remaining, err := e.routes.GetRemainingRoute(s.OrderID, agent)
	if err == nil && len(remaining) > 0 {
		return geo.HaversineDistance(agent, remaining[0].Coordinate) + geo.RouteLength(remaining), true
	}

	if cust := s.Participant(domain.RoleCustomer); cust != nil && cust.Coord != nil {
		return geo.HaversineDistance(agent, *cust.Coord), true
	}
	return 0, false
}

// SetStatus applies an explicit transition from the delivery side.
// Ordering is forward-only; going backward or re-entering the current
// status is rejected.
func (e *Engine) SetStatus(orderID string, next domain.OrderStatus) error {
	s, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	if s.Terminal() {
		s.Unlock()
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminal, orderID, s.Status)
	}
	if !s.Status.CanAdvanceTo(next) {
		cur := s.Status
		s.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur, next)
	}
	s.Status = next
	s.UpdatedAt = e.cfg.Now()
	ev := StatusUpdateEvent{Type: EventOrderStatusUpdate, OrderID: orderID, Status: next.String(), ETA: etaPayload(s.LastETA)}
	s.Unlock()

	e.pub.Publish(orderID, domain.RoleCustomer, ev)
	e.log.Info("status updated", "order_id", orderID, "status", next.String())
	return nil
}

// Cancel terminates the session from any non-terminal state. Prior state
// stays valid history; only further updates are refused.
func (e *Engine) Cancel(orderID, reason string) error {
	s, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	if s.Terminal() {
		s.Unlock()
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminal, orderID, s.Status)
	}
	s.Status = domain.StatusCancelled
	s.UpdatedAt = e.cfg.Now()
	s.Unlock()

	e.pub.Broadcast(orderID, CancelledEvent{Type: EventOrderCancelled, OrderID: orderID, Reason: reason})
	e.log.Info("order cancelled", "order_id", orderID, "reason", reason)
	return nil
}

// Join attaches a connection to a role and pushes the connected snapshot
// to it. The registry enforces the one-participant-per-role invariant.
func (e *Engine) Join(orderID string, role domain.Role, conn session.ConnRef) error {
	if err := e.registry.JoinRole(orderID, role, conn); err != nil {
		return err
	}

	snap, err := e.Snapshot(orderID)
	if err != nil {
		return err
	}
	e.pub.Publish(orderID, role, snap.ConnectedEvent())
	e.log.Info("participant joined", "order_id", orderID, "role", role)
	return nil
}

// Leave drops the role's connection reference; session state is retained
// for reconnection.
func (e *Engine) Leave(orderID string, role domain.Role) error {
	return e.registry.Leave(orderID, role)
}

// Snapshot returns the current session facts without mutating anything;
// it backs the requestLocationUpdate refresh path.
func (e *Engine) Snapshot(orderID string) (Snapshot, error) {
	s, err := e.registry.Get(orderID)
	if err != nil {
		return Snapshot{}, err
	}
	r, _ := e.routes.Get(orderID)

	s.Lock()
	defer s.Unlock()

	snap := Snapshot{
		OrderID: orderID,
		Status:  s.Status,
		Route:   r,
		ETA:     s.LastETA,
	}
	if p := s.Participant(domain.RoleAgent); p != nil {
		snap.DeliveryCoords = coordCopy(p.Coord)
	}
	if p := s.Participant(domain.RoleCustomer); p != nil {
		snap.CustomerCoords = coordCopy(p.Coord)
	}
	return snap, nil
}

// SetPaused suspends or resumes update acceptance for a role. Reports that
// arrive while paused are dropped, not queued.
func (e *Engine) SetPaused(orderID string, role domain.Role, paused bool) error {
	s, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.Terminal() {
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminal, orderID, s.Status)
	}
	p := s.Participant(role)
	if p == nil {
		return fmt.Errorf("%w: %s has not joined order %s", domain.ErrInvalidInput, role, orderID)
	}
	p.Paused = paused
	return nil
}

// StaleCheck reports whether the agent's last location is older than the
// stale threshold. Advisory only; the engine takes no action on it.
func (e *Engine) StaleCheck(orderID string, now time.Time) (bool, error) {
	s, err := e.registry.Get(orderID)
	if err != nil {
		return false, err
	}

	s.Lock()
	defer s.Unlock()

	p := s.Participant(domain.RoleAgent)
	if p == nil || p.ReportedAt.IsZero() {
		return true, nil
	}
	return now.Sub(p.ReportedAt) > e.cfg.StaleThreshold, nil
}
