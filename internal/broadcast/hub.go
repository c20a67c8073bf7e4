package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	sendBuffer    = 256
	writeDeadline = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
)

// Client is one websocket subscriber pinned to a season channel.
type Client struct {
	ID       string
	SeasonID int64
	Conn     *websocket.Conn
	Send     chan []byte
}

type message struct {
	seasonID int64
	payload  []byte
}

// Hub fans redis auction events out to websocket clients grouped by season.
// All membership changes and sends go through the run loop, so the maps need
// no locking beyond the loop's serialization.
type Hub struct {
	mu       sync.RWMutex
	seasons  map[int64]map[*Client]struct{}
	register chan *Client
	unreg    chan *Client
	events   chan message
}

func NewHub() *Hub {
	return &Hub{
		seasons:  make(map[int64]map[*Client]struct{}),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		events:   make(chan message, sendBuffer),
	}
}

// Run drives registration and fan-out until the channel feeding it closes.
// Run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unreg:
			h.removeClient(c)
		case msg := <-h.events:
			h.fanOut(msg.seasonID, msg.payload)
		}
	}
}

// Broadcast queues a payload for every client watching the season. Drops
// nothing at this layer; slow clients are dropped at fan-out.
func (h *Hub) Broadcast(seasonID int64, payload []byte) {
	h.events <- message{seasonID: seasonID, payload: payload}
}

// SubscriberCount reports the number of live clients on a season channel.
func (h *Hub) SubscriberCount(seasonID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.seasons[seasonID])
}

// Serve owns a freshly upgraded connection: registers it, pumps writes, and
// blocks reading until the client goes away. Intended as the body of a
// fiber websocket handler.
func (h *Hub) Serve(conn *websocket.Conn, seasonID int64) {
	client := &Client{
		ID:       uuid.NewString(),
		SeasonID: seasonID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
	}
	h.register <- client

	go client.writePump()
	client.readPump(h.unreg)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.seasons[c.SeasonID]
	if !ok {
		set = make(map[*Client]struct{})
		h.seasons[c.SeasonID] = set
	}
	set[c] = struct{}{}

	slog.Info("Websocket client subscribed",
		slog.String("client_id", c.ID),
		slog.Int64("season_id", c.SeasonID))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.seasons[c.SeasonID]
	if !ok {
		return
	}
	if _, live := set[c]; !live {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.seasons, c.SeasonID)
	}
	close(c.Send)
	c.Conn.Close()

	slog.Info("Websocket client unsubscribed",
		slog.String("client_id", c.ID),
		slog.Int64("season_id", c.SeasonID))
}

func (h *Hub) fanOut(seasonID int64, payload []byte) {
	h.mu.RLock()
	set := h.seasons[seasonID]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.Send <- payload:
		default:
			// A full buffer means the client stopped draining; cut it
			// loose rather than stall the season channel.
			h.removeClient(c)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(unregister chan<- *Client) {
	defer func() {
		unregister <- c
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("Websocket read error",
					slog.String("client_id", c.ID),
					slog.Any("error", err))
			}
			return
		}
	}
}
