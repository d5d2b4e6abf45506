// File: internal/server/websocket.go
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Loopback-only surface; origin checks would matter if this ever
		// binds beyond localhost.
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// handleEvents upgrades GET /api/v1/events and relays widget lifecycle
// events to the client as JSON frames until either side disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed.", zap.Error(err))
		return
	}
	defer conn.Close()

	eventCh, unsubscribe := s.components.Bus.Subscribe()
	defer unsubscribe()

	s.components.Hotswap.ClientConnected()
	defer s.components.Hotswap.ClientDisconnected()

	s.logger.Debug("Event stream client connected.", zap.String("remote", conn.RemoteAddr().String()))

	// Reader goroutine: the stream is one-way, but reading is what notices
	// the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug("Event stream write failed.", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
