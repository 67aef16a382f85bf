package ws

import (
	"context"

	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/social-app/services/dm-service/internal/auth"
)

// Server upgrades authenticated connections and attaches them to the
// hub. Presence keys in redis let other services see who is online.
type Server struct {
	hub      *Hub
	verifier *auth.Verifier
	presence PresenceStore
}

func NewServer(hub *Hub, verifier *auth.Verifier, presence PresenceStore) *Server {
	return &Server{hub: hub, verifier: verifier, presence: presence}
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) HandleWS() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		uid, err := s.verifier.Verify(token)
		if err != nil {
			_ = conn.Close()
			return
		}

		c := NewClient(uid, conn)
		s.hub.Attach(c)
		_ = s.presence.Refresh(context.Background(), uid)
		done := make(chan struct{})
		go keepPresence(s.presence, uid, presenceTTL/2, done)
		defer func() {
			close(done)
			if s.hub.Connections(uid) == 0 {
				_ = s.presence.Clear(context.Background(), uid)
			}
		}()

		go c.writePump()
		c.readPump(s.hub)
	}
}
