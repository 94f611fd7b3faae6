package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// handleEvents streams panel states over a websocket until either side
// closes or the server shuts down. Client messages are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed.", zap.Error(err))
		return
	}
	defer conn.Close()

	states, unsubscribe := s.panel.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				s.logger.Debug("Websocket write failed.", zap.Error(err))
				return
			}
		}
	}
}
