package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/metrics"
	"github.com/retrieveapp/retrieve-api/services"
	"go.uber.org/zap"
)

const sendBuffer = 32

// Client is one authenticated socket. A user may hold several.
type Client struct {
	UserID uuid.UUID
	send   chan []byte
}

func NewClient(userID uuid.UUID) *Client {
	return &Client{UserID: userID, send: make(chan []byte, sendBuffer)}
}

// Outbound yields the frames queued for the client. It is closed when the hub
// drops the client.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

type delivery struct {
	userID  uuid.UUID
	payload []byte
}

// Hub fans events out to the sockets of a user. It implements
// services.EventPublisher.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	done       chan struct{}

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}

	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		log:        log,
	}
}

// Run processes registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()
			h.log.Debug("client registered", zap.String("user_id", client.UserID.String()))
		case client := <-h.unregister:
			h.remove(client)
		case d := <-h.deliveries:
			h.mu.RLock()
			var stalled []*Client
			for client := range h.clients[d.userID] {
				select {
				case client.send <- d.payload:
				default:
					stalled = append(stalled, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range stalled {
				h.log.Warn("dropping slow client", zap.String("user_id", client.UserID.String()))
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.send)
	metrics.WebsocketClients.Dec()
	h.log.Debug("client unregistered", zap.String("user_id", client.UserID.String()))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for client := range set {
			close(client.send)
			metrics.WebsocketClients.Dec()
		}
		delete(h.clients, userID)
	}
}

// Register adds client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendTo queues payload for a single registered client. It reports false when
// the client is gone or its buffer is full.
func (h *Hub) SendTo(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.UserID][client]; !ok {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// Connected reports how many sockets userID currently holds.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// PublishToUser queues event for every socket of userID. It never blocks; an
// event is dropped when the delivery queue is full.
func (h *Hub) PublishToUser(userID uuid.UUID, event services.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	select {
	case h.deliveries <- delivery{userID: userID, payload: payload}:
	default:
		h.log.Warn("event queue full, dropping event", zap.String("type", event.Type))
	}
}
