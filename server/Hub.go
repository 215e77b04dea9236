package server

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/logger"
	"github.com/sirupsen/logrus"
)

// Message types sent to telemetry clients
const (
	MessageTypeReward  = "reward"
	MessageTypeState   = "state"
	MessageTypeLoss    = "loss"
	MessageTypeEpisode = "episode"
)

// Message is the envelope of all telemetry sent over websockets
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Hub implements experiment.Observer and broadcasts the telemetry it
// observes to all connected websocket clients
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex

	// dropped counts messages discarded because the broadcast channel
	// was full
	dropped int
}

// NewHub returns a new Hub buffering up to size messages
func NewHub(size int) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Message, size),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run manages clients and delivers messages until ctx is done. Run
// must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = true
			h.mutex.Unlock()
			logger.GetLogger().WithField("remote", conn.RemoteAddr()).
				Info("telemetry client connected")

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		logger.GetLogger().WithField("remote", conn.RemoteAddr()).
			Info("telemetry client disconnected")
	}
}

func (h *Hub) send(msg Message) {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			logger.GetLogger().WithFields(logrus.Fields{
				"remote": conn.RemoteAddr(),
				"error":  err,
			}).Warn("could not send telemetry")
			failed = append(failed, conn)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range failed {
		h.remove(conn)
		conn.Close()
	}
}

// Broadcast queues msg for delivery. Messages are dropped rather than
// blocking the caller when the queue is full.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	select {
	case h.broadcast <- msg:
	default:
		h.mutex.Lock()
		h.dropped++
		h.mutex.Unlock()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of messages dropped so far
func (h *Hub) Dropped() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.dropped
}

// ObserveReward implements the experiment.Observer interface
func (h *Hub) ObserveReward(r experiment.RewardPoint) {
	h.Broadcast(Message{Type: MessageTypeReward, Data: r})
}

// ObserveState implements the experiment.Observer interface
func (h *Hub) ObserveState(s experiment.StatePoint) {
	h.Broadcast(Message{Type: MessageTypeState, Data: s})
}

// ObserveLoss implements the experiment.Observer interface
func (h *Hub) ObserveLoss(l experiment.LossPoint) {
	h.Broadcast(Message{Type: MessageTypeLoss, Data: l})
}

// ObserveEpisode implements the experiment.Observer interface
func (h *Hub) ObserveEpisode(s experiment.EpisodeSummary) {
	h.Broadcast(Message{Type: MessageTypeEpisode, Data: s})
}

// handle serves a single telemetry client. Clients only listen, so
// anything they send is discarded.
func (h *Hub) handle(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		return
	}
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
