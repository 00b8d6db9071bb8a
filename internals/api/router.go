package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(200) })

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", h.handleCreateOrder)
		v1.GET("/ws/:orderID", h.handleWS)
		v1.GET("/orders/:orderID", h.handleGetOrder)
		v1.GET("/orders/:orderID/stale", h.handleGetStale)
		v1.POST("/orders/:orderID/assign", h.handleAssignAgent)
		v1.POST("/orders/:orderID/status", h.handleSetStatus)
		v1.POST("/orders/:orderID/cancel", h.handleCancel)
		v1.POST("/orders/:orderID/agent/location", h.handlePostAgentLoc)
		v1.GET("/orders/:orderID/agent/location", h.handleGetAgentLoc)
	}
}
