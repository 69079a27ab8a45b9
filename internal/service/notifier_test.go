package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct{ emits []emitted }

func (e *recordingEmitter) Emit(key string, value any) {
	e.emits = append(e.emits, emitted{Key: key, Value: value})
}

func seededNotifier(t *testing.T) (*Notifier, *store.Store, *recordingEmitter) {
	t.Helper()
	st := store.New()
	st.ReplaceMessages([]model.Message{
		{ID: 3, Type: model.NewOrder, Data: json.RawMessage(`{"order_id":17}`)},
		{ID: 2, Type: model.NewReview, Data: json.RawMessage(`{"product_id":5}`)},
		{ID: 1, Type: "NewInvoice"},
	})
	st.SetUnreadCount(model.QueueDefault, 3)
	em := &recordingEmitter{}
	return NewNotifier(st, route.NewTable(nil), em), st, em
}

func TestNotifier_BadgeAndList(t *testing.T) {
	n, _, _ := seededNotifier(t)
	assert.Equal(t, 3, n.Badge())
	require.Len(t, n.List(), 3)
	assert.Equal(t, int64(3), n.List()[0].ID)
}

func TestNotifier_Open(t *testing.T) {
	n, st, em := seededNotifier(t)

	dest, err := n.Open(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "/orders/17", dest)

	m, _ := st.Message(3)
	assert.True(t, m.IsViewed)
	assert.Equal(t, 3, st.DefaultUnreadCount(), "open leaves the counter to the backend")
	assert.Equal(t, []emitted{{Key: model.KeyMessageViewed, Value: model.ViewedPayload{ID: 3, IsViewed: true}}}, em.emits)

	dest, err = n.Open(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "/reviews?product_id=5", dest)
}

func TestNotifier_OpenUnroutableStillMarksViewed(t *testing.T) {
	n, st, em := seededNotifier(t)

	_, err := n.Open(context.Background(), 1)
	assert.ErrorIs(t, err, route.ErrUnroutable)
	m, _ := st.Message(1)
	assert.True(t, m.IsViewed)
	assert.Len(t, em.emits, 1)
}

func TestNotifier_OpenUnknownMessage(t *testing.T) {
	n, _, em := seededNotifier(t)

	_, err := n.Open(context.Background(), 99)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.Empty(t, em.emits)
}

func TestNotifier_MarkAllRead(t *testing.T) {
	n, st, em := seededNotifier(t)
	st.SetUnreadCount(model.QueueBoard, 2)

	n.MarkAllRead(context.Background())

	assert.Equal(t, 0, n.Badge())
	assert.Equal(t, 2, st.BoardUnreadCount())
	assert.Equal(t, []emitted{{Key: model.KeyAllDefaultGroupViewed, Value: model.BulkViewedPayload{IsViewed: true}}}, em.emits)
}
