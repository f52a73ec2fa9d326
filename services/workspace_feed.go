// The feed hub keeps one room per workspace topic. Each room owns its client
// set inside Run(): clients join through register, leave through unregister,
// and anything sent on broadcast is copied to every client's send buffer.
package services

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Listeners never send anything meaningful, so keep reads tiny.
	maxMessageSize = 512

	clientBufferSize = 64
	roomBufferSize   = 128
)

const (
	FeedPostCreated = "post_created"
	FeedPostRated   = "post_rated"
)

type FeedEvent struct {
	Action string          `json:"action"`
	Topic  workspace.Topic `json:"topic"`
	Post   *post.Post      `json:"post"`
}

type FeedRoom struct {
	Topic      workspace.Topic
	hub        *FeedHub
	clients    map[*FeedClient]bool
	count      atomic.Int64
	broadcast  chan []byte
	register   chan *FeedClient
	unregister chan *FeedClient
}

type FeedHub struct {
	rooms  map[workspace.Topic]*FeedRoom
	logger *zap.SugaredLogger
	done   chan struct{}
	once   sync.Once
}

func NewFeedHub(logger *zap.SugaredLogger) *FeedHub {
	h := &FeedHub{
		rooms:  make(map[workspace.Topic]*FeedRoom),
		logger: logger,
		done:   make(chan struct{}),
	}
	for _, topic := range workspace.All() {
		room := &FeedRoom{
			Topic:      topic,
			hub:        h,
			clients:    make(map[*FeedClient]bool),
			broadcast:  make(chan []byte, roomBufferSize),
			register:   make(chan *FeedClient),
			unregister: make(chan *FeedClient),
		}
		h.rooms[topic] = room
		go room.Run()
	}
	return h
}

func (r *FeedRoom) Run() {
	for {
		select {
		case client := <-r.register:
			r.clients[client] = true
			r.count.Store(int64(len(r.clients)))
			r.hub.logger.Debugw("Feed listener joined", "topic", r.Topic, "listeners", len(r.clients))

		case client := <-r.unregister:
			if _, ok := r.clients[client]; ok {
				delete(r.clients, client)
				close(client.send)
				r.count.Store(int64(len(r.clients)))
			}

		case message := <-r.broadcast:
			for client := range r.clients {
				select {
				case client.send <- message:
				default:
					// Slow listener; drop it rather than stall the room.
					close(client.send)
					delete(r.clients, client)
				}
			}
			r.count.Store(int64(len(r.clients)))

		case <-r.hub.done:
			for client := range r.clients {
				close(client.send)
				delete(r.clients, client)
			}
			r.count.Store(0)
			return
		}
	}
}

// Publish sends a post change to everyone watching topic. It never blocks:
// when the room is backed up the event is dropped, listeners can refetch.
func (h *FeedHub) Publish(topic workspace.Topic, action string, p *post.Post) {
	room, ok := h.rooms[topic]
	if !ok {
		return
	}

	data, err := json.Marshal(FeedEvent{Action: action, Topic: topic, Post: p})
	if err != nil {
		h.logger.Errorw("Failed to marshal feed event", "topic", topic, "error", err)
		return
	}

	select {
	case room.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warnw("Feed event dropped: room backed up", "topic", topic, "action", action)
	}
}

// Join registers conn as a listener of topic and starts its pumps.
func (h *FeedHub) Join(topic workspace.Topic, userID string, conn *websocket.Conn) (*FeedClient, bool) {
	room, ok := h.rooms[topic]
	if !ok {
		return nil, false
	}

	client := &FeedClient{
		room:   room,
		conn:   conn,
		send:   make(chan []byte, clientBufferSize),
		UserID: userID,
	}

	select {
	case room.register <- client:
	case <-h.done:
		conn.Close()
		return nil, false
	}

	go client.WritePump()
	go client.ReadPump()
	return client, true
}

func (h *FeedHub) Listeners(topic workspace.Topic) int {
	room, ok := h.rooms[topic]
	if !ok {
		return 0
	}
	return int(room.count.Load())
}

// Close disconnects every listener and stops the rooms.
func (h *FeedHub) Close() {
	h.once.Do(func() {
		close(h.done)
	})
}

// FeedClient sits between one websocket and its room.
type FeedClient struct {
	room   *FeedRoom
	conn   *websocket.Conn
	send   chan []byte
	UserID string
}

// ReadPump only exists to process control frames and notice disconnects.
func (c *FeedClient) ReadPump() {
	defer func() {
		select {
		case c.room.unregister <- c:
		case <-c.room.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.room.hub.logger.Debugw("Feed listener read error", "topic", c.room.Topic, "error", err)
			}
			return
		}
	}
}

// WritePump handles messages going to the listener.
func (c *FeedClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The room closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
