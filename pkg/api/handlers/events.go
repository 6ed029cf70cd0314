package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/zwcore/pkg/api/types"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const (
	heartbeatInterval = 30 * time.Second
	wsPongWait        = 60 * time.Second
	wsPingInterval    = wsPongWait * 9 / 10
	wsWriteWait       = 10 * time.Second
	wsMaxMessageSize  = 4096
)

// WSMessage is a message sent to or from a WebSocket client.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WSSubscribePayload narrows a WebSocket stream to notification types.
// An empty list means every type.
type WSSubscribePayload struct {
	Types []string `json:"types"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// EventsHandler streams notifications over SSE and WebSocket
type EventsHandler struct {
	subscriber EventSubscriber
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(subscriber EventSubscriber) *EventsHandler {
	return &EventsHandler{subscriber: subscriber}
}

// Events handles GET /events (SSE stream)
// @Summary      Subscribe to notifications
// @Description  Server-Sent Events stream of every notification; ?type= may be repeated to filter
// @Tags         events
// @Produce      text/event-stream
// @Param        type  query     []string  false  "Notification types to keep"
// @Success      200   {string}  string    "SSE event stream"
// @Router       /events [get]
func (h *EventsHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	filter := c.QueryArray("type")

	eventChan := h.subscriber.Subscribe()
	defer h.subscriber.Unsubscribe(eventChan)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"message":   "Connected to notification stream",
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case n, ok := <-eventChan:
			if !ok {
				return
			}
			if !wanted(filter, n) {
				continue
			}
			sendSSEEvent(c.Writer, n.Type.String(), types.NewEvent(n))
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
			})
			c.Writer.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	io.WriteString(w, "event: "+eventType+"\n")
	io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}

func wanted(filter []string, n zwave.Notification) bool {
	return len(filter) == 0 || slices.Contains(filter, n.Type.String())
}

// wsClient is one WebSocket connection. Only the write loop writes to
// conn.
type wsClient struct {
	conn    *websocket.Conn
	replies chan WSMessage

	mu     sync.RWMutex
	filter []string
}

// Socket handles GET /ws
// @Summary      Notification WebSocket
// @Description  Streams notifications as {"type":"event"} messages. Clients may send subscribe, unsubscribe and ping.
// @Tags         events
// @Success      101  {string}  string  "Switching protocols"
// @Router       /ws [get]
func (h *EventsHandler) Socket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &wsClient{conn: conn, replies: make(chan WSMessage, 8)}

	events := h.subscriber.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.readLoop()
	}()
	client.writeLoop(events, done)
	h.subscriber.Unsubscribe(events)
	conn.Close()
	<-done
}

func (c *wsClient) readLoop() {
	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		c.handle(msg)
	}
}

func (c *wsClient) handle(msg WSMessage) {
	switch msg.Type {
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &sub); err != nil {
				c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid subscribe payload"})
				return
			}
		}
		c.mu.Lock()
		if msg.Type == WSTypeSubscribe {
			c.filter = sub.Types
		} else {
			c.filter = slices.DeleteFunc(c.filter, func(t string) bool { return slices.Contains(sub.Types, t) })
		}
		filter := slices.Clone(c.filter)
		c.mu.Unlock()
		c.reply(msg.ID, WSTypeResponse, map[string]any{"types": filter})
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type"})
	}
}

func (c *wsClient) reply(id, msgType string, payload any) {
	msg := WSMessage{Type: msgType, ID: id, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if payload != nil {
		msg.Payload, _ = json.Marshal(payload)
	}
	select {
	case c.replies <- msg:
	default:
	}
}

func (c *wsClient) wants(n zwave.Notification) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return wanted(c.filter, n)
}

func (c *wsClient) writeLoop(events <-chan zwave.Notification, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		var msg WSMessage
		select {
		case <-done:
			return
		case n, ok := <-events:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if !c.wants(n) {
				continue
			}
			payload, _ := json.Marshal(types.NewEvent(n))
			msg = WSMessage{
				Type:      WSTypeEvent,
				EventType: n.Type.String(),
				Timestamp: n.Time.UTC().Format(time.RFC3339Nano),
				Payload:   payload,
			}
		case msg = <-c.replies:
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
