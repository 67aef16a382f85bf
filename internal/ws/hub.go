package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/yourorg/social-app/services/dm-service/internal/metrics"
)

// Hub keeps one logical channel per user id, with any number of live
// connections (devices, tabs) attached to it. Delivery is at-most-once
// and fire-and-forget: no active connection means the event is dropped.
type Hub struct {
	channels map[string]map[*Client]bool // userID -> attached connections
	mu       sync.RWMutex
	log      *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		channels: make(map[string]map[*Client]bool),
		log:      log,
	}
}

func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[c.uid] == nil {
		h.channels[c.uid] = make(map[*Client]bool)
	}
	h.channels[c.uid][c] = true
}

// Detach removes the connection and closes its send channel. The close
// happens under the write lock, and Publish only sends while holding the
// read lock, so a close can never interleave with an in-flight send.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.channels[c.uid]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.channels, c.uid)
		}
	}
	c.close()
}

// Connections reports how many live connections userID has.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[userID])
}

// Publish fans env out to every connection on userID's channel. Slow
// consumers are dropped rather than blocking the caller.
func (h *Hub) Publish(userID string, env *Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("ws marshal", "err", err)
		return
	}
	h.mu.RLock()
	conns := h.channels[userID]
	if len(conns) == 0 {
		h.mu.RUnlock()
		metrics.EventsDropped.Inc()
		return
	}
	var slow []*Client
	for c := range conns {
		select {
		case c.send <- b:
			metrics.EventsDelivered.Inc()
		default:
			metrics.EventsDropped.Inc()
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Detaching takes the write lock, so it has to wait until the
	// fan-out above has released the read lock.
	for _, c := range slow {
		h.Detach(c)
	}
}
