package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only send control frames
	maxMessageSize = 4 * 1024

	sseKeepAlive = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the gateway in front of the service
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler streams workflow events to dashboards. A session only gets
// events for UIDs its viewer may see; payloads carry identifiers, statuses
// and bindings, and the client re-fetches through the REST endpoints.
type EventsHandler struct {
	BaseHandler
	subscriber events.Subscriber
	visibility workflow.Visibility
}

func NewEventsHandler(subscriber events.Subscriber, visibility workflow.Visibility, logger utils.Logger) *EventsHandler {
	return &EventsHandler{
		BaseHandler: NewBaseHandler(logger),
		subscriber:  subscriber,
		visibility:  visibility,
	}
}

// forViewer returns event as actor may receive it. A reassignment reaches
// every session with its bindings stripped, so a dashboard that lost the UID
// still drops it.
func (h *EventsHandler) forViewer(event events.Event, actor models.Actor) (events.Event, bool) {
	if h.visibility.CanViewEvent(event.Payload, actor) {
		return event, true
	}
	if event.Type == models.EventUidAssigned {
		event.Payload = models.EventPayload{UID: event.Payload.UID}
		return event, true
	}
	return event, false
}

// ServeWebsocket upgrades to a websocket and writes one JSON event per frame.
// @Summary Dashboard event stream (websocket)
// @Tags dashboard
// @Router /dashboard/events [get]
func (h *EventsHandler) ServeWebsocket(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		cancel()
		h.LogError(c, err, "Failed to open event session")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Event stream unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		// the upgrader has already written the error response
		h.LogError(c, err, "WebSocket upgrade failed")
		return
	}

	logger := utils.GetLogger(c, h.logger).With("user_id", actor.ID, "role", actor.Role)
	logger.Info("Dashboard connected", "transport", "websocket")

	go h.readPump(conn, cancel, logger)
	h.writePump(conn, stream, actor, logger)
}

// readPump drains control frames and ends the session when the peer goes away.
func (h *EventsHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc, logger utils.Logger) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("Dashboard disconnected")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Unexpected WebSocket close", "error", err)
			} else {
				logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
	}
}

func (h *EventsHandler) writePump(conn *websocket.Conn, stream <-chan events.Event, actor models.Actor, logger utils.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-stream:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			event, ok = h.forViewer(event, actor)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams the same events as text/event-stream, named by event type.
// @Summary Dashboard event stream (server-sent events)
// @Tags dashboard
// @Produce text/event-stream
// @Router /dashboard/events/stream [get]
func (h *EventsHandler) ServeSSE(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		h.LogError(c, err, "Failed to open event session")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Event stream unavailable"})
		return
	}

	logger := utils.GetLogger(c, h.logger).With("user_id", actor.ID, "role", actor.Role)
	logger.Info("Dashboard connected", "transport", "sse")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Dashboard disconnected")
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			if event, ok = h.forViewer(event, actor); !ok {
				continue
			}
			c.SSEvent(string(event.Type), event)
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
