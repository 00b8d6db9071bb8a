package domain

import (
	"fmt"
	"math"
)

// Coordinate is a WGS 84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

func (c Coordinate) IsValid() bool {

	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lng) && c.Lat <= 90 && c.Lat >= -90 && c.Lng <= 180 && c.Lng >= -180

}

// Waypoint is one stop on a planned route. Ordinal is the waypoint's
// position within its route and is fixed once the route is set.
type Waypoint struct {
	Coordinate
	Ordinal int `json:"ordinal"`
}

// Route is an ordered waypoint sequence from the agent's origin to the
// drop-off. Routes are replaced wholesale, never mutated in place.
type Route []Waypoint

func NewRoute(coords ...Coordinate) Route {
	r := make(Route, 0, len(coords))
	for i, c := range coords {
		r = append(r, Waypoint{Coordinate: c, Ordinal: i})
	}
	return r
}

// Coords strips the ordinals for the wire format.
func (r Route) Coords() []Coordinate {
	out := make([]Coordinate, len(r))
	for i, w := range r {
		out[i] = w.Coordinate
	}
	return out
}

func (r Route) IsValid() bool {
	for _, w := range r {
		if !w.IsValid() {
			return false
		}
	}
	return true
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleAgent:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// Counterpart returns the other side of the session.
func (r Role) Counterpart() Role {
	if r == RoleCustomer {
		return RoleAgent
	}
	return RoleCustomer
}

// OrderStatus values are ordered: a status may only advance to a strictly
// larger one, except Cancelled which is reachable from any non-terminal
// state.
type OrderStatus int

const (
	StatusAwaitingAssignment OrderStatus = iota
	StatusAssigned
	StatusPickedUp
	StatusInTransit
	StatusDelivered
	StatusCancelled
)

var statusNames = map[OrderStatus]string{
	StatusAwaitingAssignment: "awaiting_assignment",
	StatusAssigned:           "assigned",
	StatusPickedUp:           "picked_up",
	StatusInTransit:          "in_transit",
	StatusDelivered:          "delivered",
	StatusCancelled:          "cancelled",
}

func (s OrderStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func ParseStatus(name string) (OrderStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, name)
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanAdvanceTo reports whether an explicit transition from s to next is
// allowed: strictly forward along the delivery flow, never out of a
// terminal state, and never into Cancelled (cancellation has its own path).
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s.Terminal() || next == StatusCancelled {
		return false
	}
	return next > s && next <= StatusDelivered
}
