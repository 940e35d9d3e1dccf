package server

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	// The backend is key-gated at the API level, not per origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleUpdates serves GET /ws/updates: a websocket feed that pushes
// a convo.Update event every time an exchange is recorded. Observers
// (the TUI, a browser tab) use it to refresh without polling.
func (s *Server) handleUpdates() fiber.Handler {
	return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		updates := s.store.Subscribe()

		// Drain reads so peer close is noticed.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		s.logger.Debug("update subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

		for {
			select {
			case <-closed:
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				if err := conn.WriteJSON(u); err != nil {
					s.logger.Debug("update subscriber dropped", zap.Error(err))
					return
				}
			}
		}
	})
}
