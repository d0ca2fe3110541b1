package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gameshelf/game"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Feed pushes collection change events to every connected websocket client.
type Feed struct {
	clients  map[*client]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewFeed() *Feed {
	return &Feed{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	f.HandleConnection(conn)
}

// HandleConnection registers conn and blocks until it closes.
func (f *Feed) HandleConnection(conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go c.writePump()
	c.readPump(f)
}

// Publish broadcasts event to all clients. Clients whose buffer is full miss it.
func (f *Feed) Publish(event game.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal feed event", "type", event.Type, "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("feed client buffer full, dropping event", "type", event.Type)
		}
	}
}

func (f *Feed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every client.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		close(c.send)
		delete(f.clients, c)
	}
}

func (f *Feed) remove(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.clients[c]; ok {
		close(c.send)
		delete(f.clients, c)
	}
}

// readPump only keeps the connection alive; clients never send commands.
func (c *client) readPump(f *Feed) {
	defer func() {
		f.remove(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("feed websocket error", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
