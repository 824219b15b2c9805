package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	hub "github.com/jarupong555/Detec-V1.0/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DetectionsWebsocketHandler subscribes a client to saved-detection events.
func DetectionsWebsocketHandler(hubService *hub.HubService, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		connection, err := Upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		ctx := c.Request.Context()
		if !hubService.Register(ctx, connection) {
			connection.Close()
			return
		}
		defer hubService.Unregister(ctx, connection)

		// Clients only listen; reading drives close and ping handling.
		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Detection subscriber disconnected normally")
				} else {
					logger.Warning("Detection subscriber disconnected: %v", err)
				}
				return
			}
		}
	}
}
