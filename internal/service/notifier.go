package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/store"
)

var ErrMessageNotFound = errors.New("service: message not found")

// Emitter sends outbound frames without waiting for an answer.
type Emitter interface {
	Emit(key string, value any)
}

// Notifier is the user-facing notification surface: badge, list and read intents.
type Notifier struct {
	store   *store.Store
	routes  *route.Table
	emitter Emitter
}

func NewNotifier(st *store.Store, routes *route.Table, emitter Emitter) *Notifier {
	return &Notifier{store: st, routes: routes, emitter: emitter}
}

// Badge is the unread count of the default queue.
func (n *Notifier) Badge() int { return n.store.DefaultUnreadCount() }

// List returns the default queue, newest first.
func (n *Notifier) List() []model.Message { return n.store.DefaultMessages() }

// Open marks the message viewed, sends its read receipt and returns where the user
// should navigate. An unroutable message is still marked viewed.
func (n *Notifier) Open(_ context.Context, id int64) (string, error) {
	msg, ok := n.store.Message(id)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrMessageNotFound, id)
	}

	n.store.MarkViewed(id)
	n.emitter.Emit(model.KeyMessageViewed, model.ViewedPayload{ID: id, IsViewed: true})

	return n.routes.Resolve(msg)
}

// MarkAllRead sends the bulk read receipt and zeroes the default counter without
// waiting for the backend.
func (n *Notifier) MarkAllRead(_ context.Context) {
	n.emitter.Emit(model.KeyAllDefaultGroupViewed, model.BulkViewedPayload{IsViewed: true})
	n.store.MarkAllRead(model.QueueDefault)
}
