package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/ws"
)

// RealtimeHandler upgrades connections into the progress hub and exposes
// the connection-info endpoint.
type RealtimeHandler struct {
	log      *logger.Logger
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(baseLog *logger.Logger, hub *ws.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		log: baseLog.With("handler", "RealtimeHandler"),
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers connect from arbitrary origins; CORS is handled at
			// the HTTP layer and the socket carries no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *RealtimeHandler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WS upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, h.log)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func (h *RealtimeHandler) Info(c *gin.Context) {
	RespondOK(c, gin.H{
		"connectedClients": h.hub.ClientCount(),
		"message":          "WebSocket endpoint available at /ws",
	})
}
