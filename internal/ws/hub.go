package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/events"
	"github.com/driftchat/chat-service/internal/metrics"
	"github.com/driftchat/chat-service/internal/middleware"
	"github.com/driftchat/chat-service/internal/repository"
)

// Hub is the reactive-read layer: clients join per-conversation rooms and
// receive every event the bus publishes for those conversations, which tells
// them to re-read. Membership is checked when a room is joined.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan roomChange
	unsubscribe chan roomChange
	broadcast   chan events.Event
	done        chan struct{}

	verifier *middleware.Verifier
	users    repository.UserRepository
	members  repository.MemberRepository
	log      *zap.SugaredLogger
}

type roomChange struct {
	client         *Client
	conversationID string
}

func NewHub(verifier *middleware.Verifier, users repository.UserRepository, members repository.MemberRepository, log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan roomChange),
		unsubscribe: make(chan roomChange),
		broadcast:   make(chan events.Event, 64),
		done:        make(chan struct{}),
		verifier:    verifier,
		users:       users,
		members:     members,
		log:         log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.clients[client] = true
			metrics.WSConnections.Inc()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case ch := <-h.subscribe:
			h.join(ctx, ch)
		case ch := <-h.unsubscribe:
			if room, ok := h.rooms[ch.conversationID]; ok {
				delete(room, ch.client)
			}
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// Connection goroutines talk to the run loop through these helpers rather
// than the channels directly: after shutdown the loop no longer reads, and a
// bare send would leak the pump goroutine.

func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) joinRoom(c *Client, conversationID string) bool {
	select {
	case h.subscribe <- roomChange{client: c, conversationID: conversationID}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leaveRoom(c *Client, conversationID string) {
	select {
	case h.unsubscribe <- roomChange{client: c, conversationID: conversationID}:
	case <-h.done:
	}
}

// HandleEvent is the bus subscription entry point. It must not block the
// publisher, so a full queue drops the event; clients resync on next read.
func (h *Hub) HandleEvent(ev events.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warnw("event queue full, dropping", "type", ev.Type)
	}
}

func (h *Hub) join(ctx context.Context, ch roomChange) {
	mctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := h.members.Get(mctx, ch.conversationID, ch.client.UserID); err != nil {
		h.log.Debugw("subscribe refused", "conversation", ch.conversationID, "user", ch.client.UserID)
		return
	}
	room, ok := h.rooms[ch.conversationID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[ch.conversationID] = room
	}
	room[ch.client] = true
}

func (h *Hub) fanOut(ev events.Event) {
	room, ok := h.rooms[ev.ConversationID]
	if !ok || len(room) == 0 {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorw("marshal event", "err", err)
		return
	}
	for client := range room {
		select {
		case client.send <- data:
		default:
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	for _, room := range h.rooms {
		delete(room, client)
	}
	close(client.send)
	metrics.WSConnections.Dec()
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

// HandleWebsocket authenticates the upgrade (token query parameter) and runs
// the connection's pumps until it closes.
func (h *Hub) HandleWebsocket(conn *websocket.Conn) {
	ident, err := h.verifier.Verify(conn.Query("token"))
	if err != nil {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	user, err := h.users.GetBySubject(ctx, ident.Subject)
	cancel()
	if err != nil {
		_ = conn.Close()
		return
	}

	client := &Client{
		UserID: user.ID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
	if !h.addClient(client) {
		_ = conn.Close()
		return
	}
	go client.writePump()
	client.readPump()
}
