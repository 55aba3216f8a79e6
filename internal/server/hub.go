package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lanerush/engine/internal/game"
	"github.com/lanerush/engine/internal/metrics"
	"github.com/lanerush/engine/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// sendBuffer bounds each client's outbound queue. A client that cannot
	// drain it is dropped.
	sendBuffer = 64
)

// clientCommand is an inbound UI message mapping to one orchestrator
// operation.
type clientCommand struct {
	Op      string `json:"op"`
	EventID string `json:"eventId,omitempty"`
	Execute bool   `json:"execute,omitempty"`
	Correct bool   `json:"correct,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	ID      string `json:"id,omitempty"`
}

// serverMessage is an outbound frame.
type serverMessage struct {
	Type    string         `json:"type"` // "snapshot" or "error"
	Data    *game.Snapshot `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

// client is one connected UI socket. All writes to the underlying
// connection go through the send channel and the client's single write
// pump; the websocket package allows only one concurrent writer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// enqueue queues an outbound frame, dropping it if the client is backed up.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// Hub fans session snapshots out to every connected UI client and routes
// their commands into the orchestrator. The clients map is owned by the Run
// loop; registration, removal, and broadcast all go through its channels.
type Hub struct {
	game   game.Game
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	done      chan struct{}
	closeOnce sync.Once

	clients map[*client]bool
}

// NewHub creates a Hub over a game session.
func NewHub(g game.Game, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		game:       g,
		logger:     logger,
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run is the hub's event loop. It exits when Close is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			metrics.WebSocketClients.Inc()
			h.logger.Info("ui client connected", "total", len(h.clients))

			// New clients get the current state immediately.
			if data, err := h.snapshotFrame(); err == nil {
				c.enqueue(data)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.removeClient(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Backed-up client; cut it loose.
					h.removeClient(c)
				}
			}
		}
	}
}

// removeClient is called only from the Run loop. Closing the send channel
// stops the client's write pump, which closes the connection.
func (h *Hub) removeClient(c *client) {
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketClients.Dec()
}

// Close stops the Run loop and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) snapshotFrame() ([]byte, error) {
	snap := h.game.Snapshot()
	data, err := json.Marshal(serverMessage{Type: "snapshot", Data: &snap})
	if err != nil {
		h.logger.Error("snapshot marshal failed", "error", err)
		return nil, err
	}
	return data, nil
}

// BroadcastSnapshot pushes the current session snapshot to every client.
// Dropped when the buffer is full; the next change resends everything.
func (h *Hub) BroadcastSnapshot() {
	data, err := h.snapshotFrame()
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS upgrades GET /api/v1/ws connections and starts the per-client
// pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// writePump is the client's only connection writer: queued frames and
// keepalive pings both go out here.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// readPump parses client commands and dispatches them to the orchestrator.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.sendError(c, "malformed command")
			continue
		}
		if err := h.dispatch(cmd); err != nil {
			h.sendError(c, err.Error())
		}
	}
}

// drop hands the client back to the Run loop without blocking past hub
// shutdown.
func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// dispatch maps one client command onto the orchestrator. Generation-backed
// operations get a bounded context so a stuck upstream cannot pin the pump.
func (h *Hub) dispatch(cmd clientCommand) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd.Op {
	case "open_detail":
		_, err := h.game.OpenDetail(ctx, cmd.EventID)
		return err
	case "close_detail":
		return h.game.CloseDetail(cmd.Execute)
	case "open_quiz":
		_, err := h.game.OpenQuiz(cmd.EventID)
		return err
	case "open_action_quiz":
		_, err := h.game.OpenActionQuiz(ctx)
		return err
	case "close_quiz":
		return h.game.CloseQuiz(cmd.Correct)
	case "open_info":
		_, err := h.game.OpenInfo(ctx, cmd.Topic)
		return err
	case "close_info":
		return h.game.CloseInfo()
	case "predict":
		outcome := model.ForecastOutcome(cmd.Outcome)
		if outcome != model.OutcomeBullish && outcome != model.OutcomeBearish {
			return errors.New("invalid outcome")
		}
		return h.game.Predict(cmd.EventID, outcome)
	case "dismiss_takeaway":
		h.game.DismissTakeaway(cmd.ID)
		return nil
	default:
		return errors.New("unknown op")
	}
}

func (h *Hub) sendError(c *client, msg string) {
	data, err := json.Marshal(serverMessage{Type: "error", Message: msg})
	if err != nil {
		return
	}
	c.enqueue(data)
}
