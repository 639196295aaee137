// Package viewsync streams proxy changes to websocket viewers.
package viewsync

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/reconcile"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var ErrClosed = errors.New("viewsync: hub closed")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans proxy events out to every connected viewer. A viewer that
// connects late first receives an added event for every live proxy.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	live    map[string][]byte
	order   []string
	closed  bool
}

var _ reconcile.Observer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     log.Named("viewsync"),
		clients: map[*client]struct{}{},
		live:    map[string][]byte{},
	}
}

func (h *Hub) ProxyAdded(p *reconcile.Proxy) {
	h.publish(newEvent(EventAdded, p))
}

func (h *Hub) ProxyUpdated(p *reconcile.Proxy) {
	h.publish(newEvent(EventUpdated, p))
}

func (h *Hub) ProxyRemoved(p *reconcile.Proxy) {
	h.publish(newEvent(EventRemoved, p))
}

func (h *Hub) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", zap.String("id", ev.ID), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	switch ev.Type {
	case EventAdded:
		if _, ok := h.live[ev.ID]; !ok {
			h.order = append(h.order, ev.ID)
		}
		h.live[ev.ID] = data
	case EventUpdated:
		if _, ok := h.live[ev.ID]; ok {
			added := ev
			added.Type = EventAdded
			h.live[ev.ID], _ = json.Marshal(added)
		}
	case EventRemoved:
		delete(h.live, ev.ID)
		h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == ev.ID })
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("viewer too slow, dropping", zap.String("remote", c.conn.RemoteAddr().String()))
			h.dropLocked(c)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the viewer
// disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer+len(h.order))}
	for _, id := range h.order {
		c.send <- h.live[id]
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("viewer connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	// send is closed when the hub drops the viewer; closing the socket ends readPump.
	c.conn.Close()
}

// readPump discards viewer input and unregisters the viewer once its
// connection fails.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer. Events published afterwards are dropped.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	var err error
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed")
	for c := range h.clients {
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); werr != nil &&
			!errors.Is(werr, websocket.ErrCloseSent) {
			err = multierr.Append(err, werr)
		}
		err = multierr.Append(err, c.conn.Close())
		h.dropLocked(c)
	}
	return err
}
