// Package status pushes level load progress to the browser over websockets.
package status

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/logger"
)

type Kind string

const (
	KindInfo     Kind = "info"
	KindError    Kind = "error"
	KindProgress Kind = "progress"
)

const (
	pingPeriod   = 30 * time.Second
	writeTimeout = 40 * time.Second
	sendBuffer   = 32
)

type Message struct {
	Kind     Kind
	Text     string
	Time     time.Time
	Progress float32 `json:",omitempty"` // 0..1, progress messages only
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to connected clients. New clients first receive the
// most recent message.
type Hub struct {
	lock    sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

var defaultHub = NewHub()

func (h *Hub) Publish(m Message) {
	if math.IsNaN(float64(m.Progress)) || math.IsInf(float64(m.Progress), 0) {
		m.Progress = 0
	}
	data, err := json.Marshal(&m)
	if err != nil {
		logger.Log.Error("status marshal", zap.Error(err))
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client, it gets the next one
		}
	}
}

// Attach serves conn until it fails or closes.
func (h *Hub) Attach(conn *websocket.Conn) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	h.lock.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.lock.Unlock()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) detach(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.clients, c)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.detach(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Log.Debug("status write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.Debug("status ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readPump processes pongs and the close handshake.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			c.conn.Close()
			return
		}
	}
}

func Attach(conn *websocket.Conn) { defaultHub.Attach(conn) }

func Info(format string, a ...interface{}) {
	defaultHub.Publish(Message{Kind: KindInfo, Text: fmt.Sprintf(format, a...), Time: time.Now()})
}

func Error(format string, a ...interface{}) {
	defaultHub.Publish(Message{Kind: KindError, Text: fmt.Sprintf(format, a...), Time: time.Now()})
}

func Progress(progress float32, format string, a ...interface{}) {
	defaultHub.Publish(Message{Kind: KindProgress, Text: fmt.Sprintf(format, a...), Time: time.Now(), Progress: progress})
}
