package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mathler-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
	broadcastSize  = 100
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub       *WebSocketHub
	snapshots services.PriceSnapshotStore
	logger    *zap.Logger
}

// WebSocketHub owns the set of connected clients. Only its run loop touches
// the set or closes a client's send channel.
type WebSocketHub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan directMessage
	counts     chan chan int
	done       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
}

type Client struct {
	ID   string
	Conn *websocket.Conn
	send chan *Message
}

type Message struct {
	Type      string `json:"type"`
	Price     string `json:"price,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type directMessage struct {
	client  *Client
	message *Message
}

func NewWebSocketHandler(snapshots services.PriceSnapshotStore, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	hub := &WebSocketHub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, broadcastSize),
		direct:     make(chan directMessage),
		counts:     make(chan chan int),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		logger:     logger,
	}

	go hub.run()

	return &WebSocketHandler{
		hub:       hub,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		send: make(chan *Message, clientSendSize),
	}

	h.sendSnapshot(c, client)

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.hub.sendTo(client, &Message{Type: "PONG", Timestamp: time.Now().Unix()})
	}
}

// sendSnapshot greets a new client with the last known price. It runs
// before the write pump starts, so it is the only writer at that point.
func (h *WebSocketHandler) sendSnapshot(c *gin.Context, client *Client) {
	if h.snapshots == nil {
		return
	}
	price, err := h.snapshots.PriceSnapshot(c.Request.Context())
	if err != nil {
		h.logger.Warn("failed to read price snapshot", zap.Error(err))
		return
	}
	if price == "" {
		return
	}

	client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	client.Conn.WriteJSON(&Message{Type: services.MessageTypePriceUpdate, Price: price})
}

// BroadcastPrice queues a price update for every connected client. Updates
// are dropped when the hub is backed up; the next tick replaces them.
func (h *WebSocketHandler) BroadcastPrice(price string) {
	msg := &Message{Type: services.MessageTypePriceUpdate, Price: price}

	select {
	case h.hub.broadcast <- msg:
	case <-h.hub.done:
	default:
		h.logger.Warn("price broadcast dropped", zap.String("price", price))
	}
}

func (h *WebSocketHandler) ClientCount() int {
	return h.hub.count()
}

// Stop disconnects every client and ends the hub.
func (h *WebSocketHandler) Stop() {
	h.hub.stopOnce.Do(func() { close(h.hub.done) })
	<-h.hub.stopped
}

func (hub *WebSocketHub) run() {
	defer close(hub.stopped)

	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = struct{}{}
			hub.logger.Debug("client registered", zap.String("client_id", client.ID))

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			for client := range hub.clients {
				select {
				case client.send <- message:
				default:
					hub.logger.Info("dropping slow client", zap.String("client_id", client.ID))
					hub.remove(client)
				}
			}

		case d := <-hub.direct:
			if _, ok := hub.clients[d.client]; ok {
				select {
				case d.client.send <- d.message:
				default:
				}
			}

		case reply := <-hub.counts:
			reply <- len(hub.clients)

		case <-hub.done:
			for client := range hub.clients {
				hub.remove(client)
			}
			return
		}
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	if _, ok := hub.clients[client]; !ok {
		return
	}
	delete(hub.clients, client)
	close(client.send)
	hub.logger.Debug("client unregistered", zap.String("client_id", client.ID))
}

func (hub *WebSocketHub) sendTo(client *Client, msg *Message) {
	select {
	case hub.direct <- directMessage{client: client, message: msg}:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) count() int {
	reply := make(chan int, 1)
	select {
	case hub.counts <- reply:
		return <-reply
	case <-hub.done:
		return 0
	}
}

// writePump is the only writer on the connection once the client is
// registered. It exits when the hub closes the send channel.
func (c *Client) writePump() {
	defer c.Conn.Close()

	for msg := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(msg); err != nil {
			return
		}
	}

	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
