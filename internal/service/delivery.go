package service

import (
	"context"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	"github.com/google/uuid"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR VIEWER TRANSPORTS (WebSocket/long-poll)
type Deliverer interface {
	Subscribe(ctx context.Context, s *Session, meta registry.ConnectMetadata) (registry.Connector, error)
	Unsubscribe(sessionID, connID uuid.UUID)
}

type DeliveryService struct {
	hub         registry.Hubber
	bufferSize  int
	sendTimeout time.Duration
}

func NewDeliveryService(hub registry.Hubber, cfg *config.Config) *DeliveryService {
	size := cfg.Hub.ViewerBuffer
	if size <= 0 {
		size = 64
	}
	timeout := cfg.Hub.SendTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &DeliveryService{hub: hub, bufferSize: size, sendTimeout: timeout}
}

// [SUBSCRIBE] Attaches a viewer and primes it with the current store state,
// so a fresh tab renders without waiting for the next change.
func (s *DeliveryService) Subscribe(ctx context.Context, sess *Session, meta registry.ConnectMetadata) (registry.Connector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := registry.NewConnector(ctx, sess.ID, s.bufferSize, meta)
	s.hub.Register(conn)
	conn.Send(event.NewSnapshotEvent(sess.ID, sess.Store.Snapshot()), s.sendTimeout)

	return conn, nil
}

// [UNSUBSCRIBE] Detaches the viewer; the hub closes its mailbox.
func (s *DeliveryService) Unsubscribe(sessionID, connID uuid.UUID) {
	s.hub.Unregister(sessionID, connID)
}
