package lp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	lpmarshaller "github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/marshaller/lp"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/middleware"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
)

const maxBatch = 16

type LPHandler struct {
	deliverer service.Deliverer
	timeout   time.Duration
}

func NewLPHandler(deliverer service.Deliverer, cfg *config.Config) *LPHandler {
	timeout := cfg.HTTP.PollTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LPHandler{
		deliverer: deliverer,
		timeout:   timeout,
	}
}

// Poll handles the long-polling request.
// It holds the connection until an event arrives or timeout occurs.
// A fresh subscription is primed with the current snapshot, so the first poll of
// a page load answers immediately; the client passes ?since=<version> afterwards
// to wait for the next change only.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	// 1. Session resolved by middleware.RequireSession.
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "no session")
		return
	}
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = v
	}

	// 2. Temporary subscription living for the duration of this HTTP request.
	conn, err := h.deliverer.Subscribe(r.Context(), sess, registry.ConnectMetadata{
		Transport: "lp",
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer h.deliverer.Unsubscribe(sess.ID, conn.GetID())

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	var events []event.Eventer
	gate := event.NewSnapshotGate(since)

	// 3. Wait for data or timeout.
wait:
	for {
		select {
		case <-r.Context().Done():
			// Client disconnected.
			return

		case <-timer.C:
			// Standard long-polling timeout to prevent hanging connections.
			w.WriteHeader(http.StatusNoContent)
			return

		case ev, ok := <-conn.Recv():
			if !ok {
				w.WriteHeader(http.StatusGone)
				return
			}
			if !gate.Admit(ev) {
				continue
			}
			events = append(events, ev)
			break wait
		}
	}

	// Drain what is already buffered to batch it into this response.
drainLoop:
	for range maxBatch - 1 {
		select {
		case nextEv, ok := <-conn.Recv():
			if !ok {
				break drainLoop
			}
			if gate.Admit(nextEv) {
				events = append(events, nextEv)
			}
		default:
			break drainLoop
		}
	}

	// 4. Final transmission.
	data, err := lpmarshaller.MarshallEvents(events)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "marshal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
