// Package render holds the simulator outputs a device can draw to.
package render

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// Message is what preview clients receive as JSON.
type Message struct {
	Type       string         `json:"type"`
	Strip      int            `json:"strip,omitempty"`
	Brightness uint8          `json:"brightness,omitempty"`
	Pixels     []string       `json:"pixels,omitempty"`
	Strips     []StripMessage `json:"strips,omitempty"`
}

// StripMessage is one strip inside a snapshot.
type StripMessage struct {
	Strip      int      `json:"strip"`
	Brightness uint8    `json:"brightness"`
	Pixels     []string `json:"pixels"`
}

// WebSocketRenderer streams every rendered frame to connected browsers.
// It is an http.Handler; mount it where the preview page connects.
type WebSocketRenderer struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[int64]*wsClient
	last    map[int]StripMessage
	nextID  atomic.Int64
}

// NewWebSocketRenderer creates a renderer with no clients.
func NewWebSocketRenderer() *WebSocketRenderer {
	return &WebSocketRenderer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[int64]*wsClient),
		last:    make(map[int]StripMessage),
	}
}

// Show broadcasts the frame. Slow clients drop frames instead of
// stalling the device loop.
func (w *WebSocketRenderer) Show(strip int, pixels []color.RGB, brightness uint8) error {
	frame := StripMessage{Strip: strip, Brightness: brightness, Pixels: hexPixels(pixels)}

	w.mu.Lock()
	w.last[strip] = frame
	w.mu.Unlock()

	w.broadcast(Message{Type: "frame", Strip: strip, Brightness: brightness, Pixels: frame.Pixels})
	return nil
}

// Reset tells clients every strip is gone.
func (w *WebSocketRenderer) Reset() error {
	w.mu.Lock()
	w.last = make(map[int]StripMessage)
	w.mu.Unlock()

	w.broadcast(Message{Type: "reset"})
	return nil
}

// Clients returns the number of connected clients.
func (w *WebSocketRenderer) Clients() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// Close disconnects every client.
func (w *WebSocketRenderer) Close() {
	w.mu.Lock()
	clients := make([]*wsClient, 0, len(w.clients))
	for _, c := range w.clients {
		clients = append(clients, c)
	}
	w.clients = make(map[int64]*wsClient)
	w.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ServeHTTP upgrades the request and sends a snapshot of every strip
// before streaming frames.
func (w *WebSocketRenderer) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Preview upgrade failed")
		return
	}

	c := &wsClient{
		id:     w.nextID.Add(1),
		conn:   conn,
		sendCh: make(chan Message, sendBuffer),
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	w.clients[c.id] = c
	snapshot := Message{Type: "snapshot", Strips: make([]StripMessage, 0, len(w.last))}
	for _, s := range w.last {
		snapshot.Strips = append(snapshot.Strips, s)
	}
	w.mu.Unlock()
	sort.Slice(snapshot.Strips, func(i, j int) bool { return snapshot.Strips[i].Strip < snapshot.Strips[j].Strip })

	log.Debug().Int64("client", c.id).Msg("Preview client connected")

	c.send(snapshot)
	go c.writePump()
	c.readPump()

	w.mu.Lock()
	delete(w.clients, c.id)
	w.mu.Unlock()
	log.Debug().Int64("client", c.id).Msg("Preview client disconnected")
}

func (w *WebSocketRenderer) broadcast(msg Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.clients {
		c.send(msg)
	}
}

type wsClient struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan Message
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) send(msg Message) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		log.Debug().Int64("client", c.id).Msg("Preview client too slow, dropping frame")
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump discards client input and notices disconnects.
func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int64("client", c.id).Msg("Preview read failed")
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func hexPixels(pixels []color.RGB) []string {
	out := make([]string, len(pixels))
	for i, p := range pixels {
		out[i] = p.Hex()
	}
	return out
}
