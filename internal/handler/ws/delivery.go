package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	wsmarshaller "github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/marshaller/ws"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/middleware"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		upgrader: websocket.Upgrader{
			// The console is served from the same origin; the session id is the credential.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. SESSION RESOLVED BY middleware.RequireSession
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "no session")
		return
	}

	// 2. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	// 3. SUBSCRIBE VIA THE DELIVERY SERVICE
	conn, err := h.deliverer.Subscribe(r.Context(), sess, registry.ConnectMetadata{
		Transport: "ws",
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return
	}
	defer h.deliverer.Unsubscribe(sess.ID, conn.GetID())

	logger := h.logger.With("session_id", sess.ID, "conn_id", conn.GetID())
	logger.Info("ws opened")

	// [HANDSHAKE] Tell the viewer who it is and how the backend link is doing
	hello := event.NewSystemEvent(sess.ID, event.Connected, event.PriorityHigh, &model.ConnectedPayload{
		Ok:           true,
		ConnectionID: conn.GetID().String(),
		SessionID:    sess.ID.String(),
		Status:       sess.Conn.Status().String(),
	})
	if err := h.write(ws, hello); err != nil {
		return
	}

	// [READ_PUMP] Viewers never send data; reading detects the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	// 4. MAIN WS PUMP LOOP
	gate := event.NewSnapshotGate(0)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			logger.Debug("ws closed by viewer")
			return
		case ev, ok := <-conn.Recv():
			if !ok {
				// Logout or eviction closed the mailbox.
				bye := event.NewSystemEvent(sess.ID, event.Disconnected, event.PriorityHigh, &model.DisconnectedPayload{
					Reason: "session closed",
					Code:   "LOGOUT",
				})
				_ = h.write(ws, bye)
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if !gate.Admit(ev) {
				continue
			}
			if err := h.write(ws, ev); err != nil {
				logger.Warn("ws send failed", "error", err)
				return
			}
		}
	}
}

func (h *WSHandler) write(ws *websocket.Conn, ev event.Eventer) error {
	data, err := wsmarshaller.MarshallDeliveryEvent(ev)
	if err != nil {
		h.logger.Error("failed to marshal ws event", "error", err)
		return nil
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}
