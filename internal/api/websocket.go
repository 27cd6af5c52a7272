package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/binmap/backend/internal/mapview"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the marker stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSnapshot  = "snapshot"
	MsgTypeEvent     = "event"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for every frame in both directions
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams map events to connected pages
type WebSocketHandler struct {
	view     MapView
	upgrader websocket.Upgrader
	buffer   int
	logger   *slog.Logger
}

// NewWebSocketHandler creates a marker stream handler. buffer is the number
// of events queued per client before events are dropped for that client.
func NewWebSocketHandler(view MapView, buffer int, logger *slog.Logger) *WebSocketHandler {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		view: view,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS middleware
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		buffer: buffer,
		logger: logger.With("component", "websocket"),
	}
}

// wsConn serializes writes; gorilla allows one concurrent writer
type wsConn struct {
	*websocket.Conn
	mu     sync.Mutex
	logger *slog.Logger
}

func (c *wsConn) send(msgType string, payload interface{}) {
	msg := WSMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		msg.Payload = mustJSON(payload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.WriteJSON(msg); err != nil {
		c.logger.Debug("failed to send message", "type", msgType, "err", err)
	}
}

// HandleMarkerStream upgrades the connection, sends the current markers and
// then forwards every map event until either side goes away
func (wsh *WebSocketHandler) HandleMarkerStream(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	conn := &wsConn{Conn: ws, logger: wsh.logger}
	defer conn.Close()

	m, ok := wsh.view.Map()
	if !ok {
		conn.send(MsgTypeError, WSErrorResponse{Message: "map is not mounted", Code: "NOT_MOUNTED"})
		return nil
	}

	// Subscribe before the snapshot so no change is lost in between;
	// a duplicate add is harmless to the client.
	events, unsubscribe := m.Subscribe(wsh.buffer)
	defer unsubscribe()

	wsh.logger.Info("client connected", "remote", c.RealIP())
	conn.send(MsgTypeConnected, nil)
	conn.send(MsgTypeSnapshot, map[string]interface{}{
		"markers": m.Markers(""),
		"camera":  m.Camera(),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsh.logger.Warn("connection error", "err", err)
				}
				return
			}
			switch msg.Type {
			case MsgTypePing:
				conn.send(MsgTypePong, nil)
			default:
				conn.send(MsgTypeError, WSErrorResponse{Message: "Unknown message type: " + msg.Type, Code: "INVALID_TYPE"})
			}
		}
	}()

	for {
		select {
		case <-done:
			wsh.logger.Info("client disconnected", "remote", c.RealIP())
			return nil
		case ev, ok := <-events:
			if !ok {
				// Dropped for falling behind; the page reconnects and
				// receives a fresh snapshot.
				wsh.logger.Warn("client lagged, closing stream", "remote", c.RealIP())
				conn.send(MsgTypeError, WSErrorResponse{Message: "event stream lagged, reconnect to resync", Code: "RESYNC"})
				return nil
			}
			conn.send(MsgTypeEvent, ev)
			if ev.Type == mapview.EventDestroy {
				return nil
			}
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
