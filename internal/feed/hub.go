package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ghoststation/internal/logging"
)

const (
	maxClients   = 50
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	id    uuid.UUID
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	id uuid.UUID
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

// clientWriter owns all writes to one connection.
type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	_ = cw.conn.Close()
}

// Hub fans notifications out to websocket clients. All client bookkeeping
// happens on the hub goroutine; callers talk to it through commands.
type Hub struct {
	cmdCh    chan hubCmd
	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
	clients  map[uuid.UUID]*clientWriter
	logger   *slog.Logger
}

// NewHub starts a hub. logger must not feed back into the hub.
func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
		clients: make(map[uuid.UUID]*clientWriter),
		logger:  logging.NewComponentLogger(logger, "feed"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case cmdRegister:
				h.handleRegister(c)
			case cmdUnregister:
				h.handleUnregister(c.id)
			case cmdBroadcast:
				h.handleBroadcast(c.data)
			case cmdClientCount:
				c.replyCh <- len(h.clients)
			}
		case <-h.stopCh:
			for id, cw := range h.clients {
				cw.stop()
				delete(h.clients, id)
			}
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= maxClients {
		_ = c.conn.Close()
		c.errCh <- errors.New("feed client limit reached")
		return
	}
	h.clients[c.id] = newClientWriter(c.conn)
	h.logger.Debug("feed client registered", logging.String("client_id", c.id.String()), logging.Int("clients", len(h.clients)))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(id uuid.UUID) {
	cw, ok := h.clients[id]
	if !ok {
		return
	}
	cw.stop()
	delete(h.clients, id)
	h.logger.Debug("feed client unregistered", logging.String("client_id", id.String()), logging.Int("clients", len(h.clients)))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []uuid.UUID
	for id, cw := range h.clients {
		select {
		case cw.sendCh <- data:
		default:
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		h.logger.Info("disconnecting slow feed client", logging.String("client_id", id.String()))
		h.handleUnregister(id)
	}
}

func (h *Hub) send(cmd hubCmd) bool {
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.stopped:
		return false
	}
}

// Publish implements Publisher. Notifications published after Stop are dropped.
func (h *Hub) Publish(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("encode feed notification", logging.Error(err))
		return
	}
	h.send(cmdBroadcast{data: data})
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(cmdClientCount{replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.stopped:
		return 0
	}
}

// ServeHTTP upgrades the request and streams notifications until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("feed upgrade failed", logging.Error(err))
		return
	}
	id := uuid.New()
	errCh := make(chan error, 1)
	if !h.send(cmdRegister{id: id, conn: conn, errCh: errCh}) {
		_ = conn.Close()
		return
	}
	select {
	case err := <-errCh:
		if err != nil {
			h.logger.Info("feed client rejected", logging.Error(err))
			return
		}
	case <-h.stopped:
		_ = conn.Close()
		return
	}

	// Clients never send anything meaningful; reading detects disconnects.
	defer h.send(cmdUnregister{id: id})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Stop disconnects every client and stops the hub goroutine.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	<-h.stopped
}
