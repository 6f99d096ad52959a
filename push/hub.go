package push

import (
	"context"
	"net/http"
	"sync"
	"time"

	"inviqa/request-basket/log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	QueryParamBasket = "basket_id"

	defaultWriteWait = 10 * time.Second
	sendBufferSize   = 16
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

type subscriptions interface {
	Subscribe(ctx context.Context, connID, endpoint string) error
	Unsubscribe(ctx context.Context, connID string) error
}

type basketChecker interface {
	BasketExists(ctx context.Context, endpoint string) (bool, error)
}

// Attacher is told about connections that open and close on this instance.
type Attacher interface {
	Attach(connID string) error
	Detach(connID string)
}

type client struct {
	id       string
	endpoint string
	conn     *websocket.Conn
	send     chan []byte
	writeMu  sync.Mutex
	done     chan struct{}
	once     sync.Once
}

// Hub owns the websocket connections opened against this instance and
// delivers pushes to them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*client
	subs      subscriptions
	baskets   basketChecker
	attachers []Attacher
	upgrader  websocket.Upgrader
	writeWait time.Duration
}

func NewHub(subs subscriptions, baskets basketChecker) *Hub {
	return &Hub{
		clients: map[string]*client{},
		subs:    subs,
		baskets: baskets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeWait: defaultWriteWait,
	}
}

func (h *Hub) AddAttacher(a Attacher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attachers = append(h.attachers, a)
}

// ServeHTTP upgrades a viewer connection for the basket named in the
// basket_id query parameter and keeps it subscribed until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get(QueryParamBasket)
	if endpoint == "" {
		http.Error(w, "missing basket_id query parameter", http.StatusBadRequest)
		return
	}

	exists, err := h.baskets.BasketExists(r.Context(), endpoint)
	if err != nil {
		log.Logger.WithError(err).WithField("endpoint", endpoint).Error("unable to check basket before accepting a viewer connection")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "basket does not exist", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logger.WithError(err).Debug("failed to upgrade viewer connection")
		return
	}

	c := &client{
		id:       uuid.New().String(),
		endpoint: endpoint,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}

	logger := log.Logger.WithFields(logrus.Fields{"connection_id": c.id, "endpoint": endpoint})

	h.register(c)

	ctx, cancel := context.WithTimeout(context.Background(), h.writeWait)
	err = h.subs.Subscribe(ctx, c.id, endpoint)
	cancel()
	if err != nil {
		logger.WithError(err).Error("unable to subscribe viewer connection")
		h.remove(c)
		return
	}
	logger.Debug("viewer connected")

	go h.writePump(c)
	h.readUntilClosed(c)

	h.remove(c)
	logger.Debug("viewer disconnected")
}

// Push queues payload as a text frame for the connection's writer. Only
// unknown or closed connections report ErrGone. A full queue that does not
// drain before ctx ends reports the context error and leaves the viewer
// connected.
func (h *Hub) Push(ctx context.Context, connID string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrGone
	}

	select {
	case <-c.done:
		return ErrGone
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrGone
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "viewer connection did not accept the push in time")
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = h.write(c, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		h.remove(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	attachers := append([]Attacher{}, h.attachers...)
	h.mu.Unlock()

	for _, a := range attachers {
		if err := a.Attach(c.id); err != nil {
			log.Logger.WithError(err).WithField("connection_id", c.id).Error("unable to attach viewer connection")
		}
	}
}

// remove is safe to call more than once for the same client.
func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		attachers := append([]Attacher{}, h.attachers...)
		h.mu.Unlock()

		close(c.done)
		_ = c.conn.Close()

		for _, a := range attachers {
			a.Detach(c.id)
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.writeWait)
		defer cancel()
		if err := h.subs.Unsubscribe(ctx, c.id); err != nil {
			log.Logger.WithError(err).WithField("connection_id", c.id).Error("unable to unsubscribe closed viewer connection")
		}
	})
}

// write must never take a caller's deadline: a timed-out websocket write
// leaves the connection unusable.
func (h *Hub) write(c *client, messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(messageType, payload)
}

func (h *Hub) readUntilClosed(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the connection's queue and keeps it alive with pings. A
// failed write means the socket is dead and the viewer is removed.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			if err := h.write(c, websocket.TextMessage, payload); err != nil {
				log.Logger.WithError(err).WithField("connection_id", c.id).Debug("write to viewer connection failed")
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}
