package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/thebowwman/ordertrack/internals/auth"
	"github.com/thebowwman/ordertrack/internals/domain"
	"github.com/thebowwman/ordertrack/internals/engine"
	"github.com/thebowwman/ordertrack/internals/hub"
)

// wsInbound is every message shape the socket accepts, tag-switched on
// Type. Coordinates ride as top-level latitude/longitude per the wire
// contract.
type wsInbound struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	AtMs      int64   `json:"at_ms,omitempty"`
}

func (h *Handlers) handleWS(c *gin.Context) {
	// 1) Accept JWT from Authorization header OR from `?token=` for browser clients
	claims, err := auth.ParseTokenFromRequest(c.Request)
	if err != nil {
		if tok := c.Query("token"); tok != "" {
			claims, err = auth.ParseToken(tok)
		}
	}
	if err != nil {
		c.String(401, "unauthorized")
		return
	}

	// 2) Order ID (supports wildcard route /ws/*orderID)
	orderID := strings.TrimPrefix(c.Param("orderID"), "/")
	if orderID == "" || orderID != claims.OrderID {
		c.String(403, "order mismatch")
		return
	}

	// 3) Upgrade to WebSocket
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true}) // TODO: use OriginPatterns in prod
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	conn.SetReadLimit(1 << 20)

	// 4) Register the socket and join the session; Join pushes the
	// connected snapshot to this client.
	client := hub.NewClient(conn, claims.Role)
	h.hubs.Add(orderID, client)
	defer h.hubs.Remove(orderID, client)

	if err := h.eng.Join(orderID, claims.Role, client); err != nil {
		client.SendJSON(engine.NewErrorEvent(err))
		return
	}
	defer func() { _ = h.eng.Leave(orderID, claims.Role) }()

	// 5) Keepalive pings, stopped when the read loop exits
	pingCtx, stopPings := context.WithCancel(context.Background())
	defer stopPings()
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-t.C:
				ctx, cancel := context.WithTimeout(pingCtx, 5*time.Second)
				_ = conn.Ping(ctx)
				cancel()
			}
		}
	}()

	// 6) Read loop: translate inbound events to engine operations; typed
	// failures go back to this client as orderError.
	for {
		mt, data, err := conn.Read(context.Background())
		if err != nil {
			break
		}
		if mt != websocket.MessageText {
			continue
		}
		var m wsInbound
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}

		switch m.Type {
		case "customerLocation":
			if claims.Role != domain.RoleCustomer {
				continue
			}
			h.reportFromWS(client, orderID, claims.Role, m)
		case "deliveryLocationUpdate":
			if claims.Role != domain.RoleAgent {
				continue
			}
			h.reportFromWS(client, orderID, claims.Role, m)
		case "requestLocationUpdate":
			snap, err := h.eng.Snapshot(orderID)
			if err != nil {
				client.SendJSON(engine.NewErrorEvent(err))
				continue
			}
			client.SendJSON(snap.ConnectedEvent())
		case "pauseTracking":
			if err := h.eng.SetPaused(orderID, claims.Role, true); err != nil {
				client.SendJSON(engine.NewErrorEvent(err))
			}
		case "resumeTracking":
			if err := h.eng.SetPaused(orderID, claims.Role, false); err != nil {
				client.SendJSON(engine.NewErrorEvent(err))
			}
		}
	}
}

func (h *Handlers) reportFromWS(client *hub.Client, orderID string, role domain.Role, m wsInbound) {
	rep := engine.LocationReport{
		Coord:      domain.Coordinate{Lat: m.Latitude, Lng: m.Longitude},
		At:         tsOrNow(m.AtMs),
		SpeedMPS:   m.Speed,
		HeadingDeg: m.Heading,
		AccuracyM:  m.Accuracy,
	}
	if err := h.eng.ReportLocation(orderID, role, rep); err != nil {
		client.SendJSON(engine.NewErrorEvent(err))
	}
}
