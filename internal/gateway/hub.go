// Package gateway fans compressed telemetry frames out to downlink TCP
// clients, generalizing the teacher's CAN-frame hub/server split to raw
// compressed-frame byte buffers.
package gateway

import (
	"sync"
	"time"

	"github.com/uviespace/airspace-compress/internal/logging"
	"github.com/uviespace/airspace-compress/internal/metrics"
)

type BackpressurePolicy int

const (
	PolicyDrop BackpressurePolicy = iota
	PolicyKick
)

// Client is a single downlink consumer's outbound frame queue.
type Client struct {
	Out       chan []byte
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the client is closed (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Closed)
	})
}

// Hub fans compressed frames out to all connected downlink clients.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	OutBufSize int
	Policy     BackpressurePolicy
}

// NewHub creates a Hub with default settings.
func NewHub() *Hub { return &Hub{clients: make(map[*Client]struct{})} }

// Add registers a client with the hub.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	prev := len(h.clients)
	h.clients[c] = struct{}{}
	cur := len(h.clients)
	h.mu.Unlock()
	if prev == 0 && cur == 1 {
		logging.L().Info("clients_first_connected")
	}
}

// Remove unregisters a client and updates metrics; safe to call multiple times.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	if existed {
		delete(h.clients, c)
	}
	cur := len(h.clients)
	h.mu.Unlock()
	select {
	case <-c.Closed:
	default:
		c.Close()
	}
	metrics.SetHubClients(cur)
	if existed && cur == 0 {
		logging.L().Info("clients_last_disconnected")
	}
}

// Broadcast sends a compressed frame to all connected clients honoring the
// backpressure policy. A frame that carries an uncompressed fallback payload
// (the client's whole raw sample buffer, not a compressed residual stream)
// gets a bounded grace period against a full queue before the normal
// drop/kick policy applies, since losing it loses an entire sample buffer
// rather than one of many similar compressed frames.
func (h *Hub) Broadcast(frame []byte) {
	clients := h.Snapshot()
	metrics.SetBroadcastFanout(len(clients))
	metrics.SetHubClients(len(clients))
	if len(clients) > 0 {
		max := 0
		sum := 0
		for _, c := range clients {
			l := len(c.Out)
			if l > max {
				max = l
			}
			sum += l
		}
		metrics.SetQueueDepth(max, sum/len(clients))
	}
	fallback := isFallbackFrame(frame)
	for _, c := range clients {
		h.send(c, frame, fallback)
	}
}

func (h *Hub) send(c *Client, frame []byte, fallback bool) {
	select {
	case c.Out <- frame:
		return
	default:
	}
	if fallback {
		timer := time.NewTimer(fallbackDeliveryGrace)
		defer timer.Stop()
		select {
		case c.Out <- frame:
			return
		case <-timer.C:
		case <-c.Closed:
		}
	}
	if h.Policy == PolicyKick {
		metrics.IncHubKick()
		c.Close() // signal writer to exit; server will Remove on disconnect
	} else {
		metrics.IncHubDrop()
		if fallback {
			metrics.IncFallbackDrop()
			logging.L().Warn("fallback_frame_dropped")
		}
	}
}

// Snapshot returns a slice copy of current clients (read-only use).
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	return clients
}

// Count returns the number of active clients.
func (h *Hub) Count() int { h.mu.RLock(); n := len(h.clients); h.mu.RUnlock(); return n }
