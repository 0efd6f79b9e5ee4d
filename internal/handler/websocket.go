package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/hub"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Reply event types written on the socket besides hub events.
const (
	EventInputResult = "input_result"
	EventInputError  = "input_error"
)

// SocketHandler accepts input events over a websocket and streams hub
// events back on the same connection.
type SocketHandler struct {
	svc      *service.SurfaceService
	hub      *hub.Hub
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewSocketHandler creates a websocket handler
func NewSocketHandler(svc *service.SurfaceService, h *hub.Hub) *SocketHandler {
	return &SocketHandler{
		svc: svc,
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logging.Named("ws"),
	}
}

// ServeHTTP upgrades the connection and runs it until either side closes.
// A drag the connection started and did not finish is cancelled on close.
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debugw("websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.Subscribe(hub.TransportWebSocket)
	if client == nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	defer h.hub.Unsubscribe(client)

	replies := make(chan hub.Event, 16)
	done := make(chan struct{})
	go h.writeLoop(conn, client, replies, done)
	defer func() {
		close(done)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	var owned *domain.NodeID
	for {
		var ev service.InputEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugw("websocket read failed", "client", client.ID(), "error", err)
			}
			break
		}

		res, err := h.svc.Dispatch(ctx, ev)
		reply := hub.Event{Type: EventInputResult, Data: res}
		if err != nil {
			reply = hub.Event{Type: EventInputError, Data: ErrorResponse{Error: "Failed to apply input", Details: err.Error()}}
		} else {
			switch ev.Type {
			case service.InputDragStart:
				id := ev.NodeID
				owned = &id
			case service.InputDragEnd, service.InputBlur:
				owned = nil
			}
		}

		select {
		case replies <- reply:
		case <-done:
		default:
			h.log.Warnw("websocket reply queue full, dropping reply", "client", client.ID())
		}
	}

	if owned != nil {
		h.releaseDrag(ctx, *owned)
	}
}

// releaseDrag cancels the drag of id if it is still the surface's drag.
func (h *SocketHandler) releaseDrag(ctx context.Context, id domain.NodeID) {
	if target, ok := h.svc.Surface().DragTarget(); !ok || target != id {
		return
	}
	// The request context is already done once the client has gone.
	if _, err := h.svc.Dispatch(context.WithoutCancel(ctx), service.InputEvent{Type: service.InputBlur}); err != nil {
		h.log.Warnw("failed to cancel drag on disconnect", "node", id, "error", err)
	}
}

// writeLoop is the connection's only writer.
func (h *SocketHandler) writeLoop(conn *websocket.Conn, client *hub.Client, replies <-chan hub.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Events():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case reply := <-replies:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(reply); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
