package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thebowwman/ordertrack/internals/auth"
	"github.com/thebowwman/ordertrack/internals/config"
	"github.com/thebowwman/ordertrack/internals/domain"
	"github.com/thebowwman/ordertrack/internals/engine"
	"github.com/thebowwman/ordertrack/internals/hub"
)

type Handlers struct {
	eng  *engine.Engine
	hubs *hub.Hubs
	cfg  *config.Config
	log  *slog.Logger
}

func NewHandlers(eng *engine.Engine, hubs *hub.Hubs, cfg *config.Config, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}

	return &Handlers{
		eng:  eng,
		hubs: hubs,
		cfg:  cfg,
		log:  log.With("component", "api"),
	}
}

// statusForError maps the engine's typed failures onto HTTP statuses; the
// ws path maps the same errors onto orderError events instead.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownOrder):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateOrder),
		errors.Is(err, domain.ErrRoleAlreadyFilled),
		errors.Is(err, domain.ErrSessionTerminal),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handlers) fail(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

type createOrderReq struct {
	OrderID    string  `json:"order_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	TTLMinutes int     `json:"ttl_minutes,omitempty"`
}

type createOrderResp struct {
	OrderID       string `json:"order_id"`
	CustomerToken string `json:"customer_token"`
	AgentToken    string `json:"agent_token"`
	WSURL         string `json:"ws_url"`
}

// handleCreateOrder places the order and mints both join tokens. Repeating
// the call for a live order re-issues tokens against the same session.
func (h *Handlers) handleCreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "bad json")
		return
	}
	if req.OrderID == "" {
		req.OrderID = hub.RandID(12)
	}

	if _, err := h.eng.PlaceOrder(req.OrderID, domain.Coordinate{Lat: req.Latitude, Lng: req.Longitude}); err != nil {
		h.fail(c, err)
		return
	}

	ttl := h.cfg.TokenTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}
	cTok, _ := auth.MakeToken(req.OrderID, domain.RoleCustomer, ttl)
	aTok, _ := auth.MakeToken(req.OrderID, domain.RoleAgent, ttl)

	c.JSON(http.StatusOK, createOrderResp{
		OrderID:       req.OrderID,
		CustomerToken: cTok,
		AgentToken:    aTok,
		WSURL:         "ws://" + c.Request.Host + "/v1/ws/" + req.OrderID,
	})
}

// claimsFor authorizes the request for the order in the path, optionally
// pinned to one role.
func (h *Handlers) claimsFor(c *gin.Context, role domain.Role) (*auth.Claims, bool) {
	claims, err := auth.ParseTokenFromRequest(c.Request)
	if err != nil {
		c.String(http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if role != "" && claims.Role != role {
		c.String(http.StatusForbidden, "role mismatch")
		return nil, false
	}
	if c.Param("orderID") != claims.OrderID {
		c.String(http.StatusForbidden, "order mismatch")
		return nil, false
	}
	return claims, true
}

type assignAgentReq struct {
	Latitude  float64             `json:"latitude"`
	Longitude float64             `json:"longitude"`
	Route     []domain.Coordinate `json:"route"`
}

func (h *Handlers) handleAssignAgent(c *gin.Context) {
	if _, ok := h.claimsFor(c, domain.RoleAgent); !ok {
		return
	}
	var req assignAgentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "bad json")
		return
	}

	agent := domain.Coordinate{Lat: req.Latitude, Lng: req.Longitude}
	if err := h.eng.AssignAgent(c.Param("orderID"), agent, domain.NewRoute(req.Route...)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setStatusReq struct {
	Status string `json:"status"`
}

func (h *Handlers) handleSetStatus(c *gin.Context) {
	if _, ok := h.claimsFor(c, domain.RoleAgent); !ok {
		return
	}
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "bad json")
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.eng.SetStatus(c.Param("orderID"), status); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cancelReq struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handlers) handleCancel(c *gin.Context) {
	if _, ok := h.claimsFor(c, ""); !ok {
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req)

	if err := h.eng.Cancel(c.Param("orderID"), req.Reason); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleGetOrder returns the session snapshot, the REST twin of the ws
// requestLocationUpdate event.
func (h *Handlers) handleGetOrder(c *gin.Context) {
	if _, ok := h.claimsFor(c, ""); !ok {
		return
	}

	snap, err := h.eng.Snapshot(c.Param("orderID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.ConnectedEvent())
}

// handleGetStale surfaces the connection-issue indicator for the UI.
func (h *Handlers) handleGetStale(c *gin.Context) {
	if _, ok := h.claimsFor(c, ""); !ok {
		return
	}

	stale, err := h.eng.StaleCheck(c.Param("orderID"), time.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stale": stale})
}

type locationReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	AtMs      int64   `json:"at_ms,omitempty"`
}

func tsOrNow(ms int64) time.Time {
	if ms > 0 {
		return time.UnixMilli(ms)
	}
	return time.Now()
}

// Agent posts last-known location (REST fallback for flaky sockets).
func (h *Handlers) handlePostAgentLoc(c *gin.Context) {
	if _, ok := h.claimsFor(c, domain.RoleAgent); !ok {
		return
	}
	var m locationReq
	if err := c.ShouldBindJSON(&m); err != nil {
		c.String(http.StatusBadRequest, "bad json")
		return
	}

	rep := engine.LocationReport{
		Coord:      domain.Coordinate{Lat: m.Latitude, Lng: m.Longitude},
		At:         tsOrNow(m.AtMs),
		SpeedMPS:   m.Speed,
		HeadingDeg: m.Heading,
		AccuracyM:  m.Accuracy,
	}
	if err := h.eng.ReportLocation(c.Param("orderID"), domain.RoleAgent, rep); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Any role fetches the agent's last-known location.
func (h *Handlers) handleGetAgentLoc(c *gin.Context) {
	if _, ok := h.claimsFor(c, ""); !ok {
		return
	}

	snap, err := h.eng.Snapshot(c.Param("orderID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if snap.DeliveryCoords == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, engine.LocationUpdateEvent{
		Type:    engine.EventDeliveryLocationUpdate,
		OrderID: snap.OrderID,
		Coords:  *snap.DeliveryCoords,
	})
}
