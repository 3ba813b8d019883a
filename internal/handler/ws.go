package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"drivio/internal/logger"
	"drivio/internal/notify"
)

// WSHandler upgrades authenticated clients to a notification websocket.
type WSHandler struct {
	hub      *notify.Hub
	upgrader *websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *notify.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      hub,
		upgrader: notify.NewUpgrader(allowedOrigins),
	}
}

// Connect handles GET /api/ws
func (h *WSHandler) Connect(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.FromContext(c.Request.Context()).WithError(err).Debug("websocket upgrade failed")
		return
	}

	h.hub.Serve(conn, caller.ID)
}
