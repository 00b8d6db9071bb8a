package engine

import "github.com/thebowwman/ordertrack/internals/domain"

// Wire event names shared with the socket clients.
const (
	EventConnected              = "connected"
	EventDeliveryLocationUpdate = "deliveryLocationUpdate"
	EventCustomerLocationUpdate = "customerLocationUpdate"
	EventOrderStatusUpdate      = "orderStatusUpdate"
	EventOrderAssigned          = "orderAssigned"
	EventOrderCancelled         = "orderCancelled"
	EventOrderError             = "orderError"
)

// ETAPayload is the wire shape of an arrival estimate.
type ETAPayload struct {
	Arrived bool  `json:"arrived"`
	Seconds int64 `json:"seconds,omitempty"`
}

// ConnectedEvent is pushed to a participant right after it joins, carrying
// everything the client needs to render the session from scratch.
type ConnectedEvent struct {
	Type           string              `json:"type"`
	OrderID        string              `json:"orderId"`
	Status         string              `json:"orderStatus"`
	DeliveryCoords *domain.Coordinate  `json:"deliveryCoords,omitempty"`
	CustomerCoords *domain.Coordinate  `json:"customerCoords,omitempty"`
	RouteCoords    []domain.Coordinate `json:"routeCoords"`
	ETA            *ETAPayload         `json:"eta,omitempty"`
}

// LocationUpdateEvent fans an accepted location report out to the
// counterpart role.
type LocationUpdateEvent struct {
	Type    string            `json:"type"`
	OrderID string            `json:"orderId"`
	Coords  domain.Coordinate `json:"coords"`
}

type StatusUpdateEvent struct {
	Type    string      `json:"type"`
	OrderID string      `json:"orderId"`
	Status  string      `json:"status"`
	ETA     *ETAPayload `json:"eta,omitempty"`
}

type AssignedEvent struct {
	Type           string              `json:"type"`
	OrderID        string              `json:"orderId"`
	DeliveryCoords *domain.Coordinate  `json:"deliveryCoords,omitempty"`
	CustomerCoords *domain.Coordinate  `json:"customerCoords,omitempty"`
	RouteCoords    []domain.Coordinate `json:"routeCoords"`
}

type CancelledEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

// ErrorEvent is how rejected operations reach a client; the engine itself
// never sends it, the transport adapter builds one from the returned error.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(err error) ErrorEvent {
	return ErrorEvent{Type: EventOrderError, Message: err.Error()}
}
