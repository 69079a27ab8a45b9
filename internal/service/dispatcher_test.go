package service

import (
	"fmt"
	"testing"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_InitialSync(t *testing.T) {
	st := store.New()
	d := NewDispatcher(st, nil, discard())

	d.OnFrame([]byte(`{"key":"initial_message","value":{"default_total":3,"board_total":1,"last_messages":[
		{"id":9,"type":"NewOrder","body":"b9"},
		{"id":8,"type":"NewReview","group":"board","body":"b8"},
		{"id":7,"type":"NewPayment","body":"b7"}]}}`))

	assert.Equal(t, 3, st.DefaultUnreadCount())
	assert.Equal(t, 1, st.BoardUnreadCount())
	require.Len(t, st.DefaultMessages(), 2)
	assert.Equal(t, int64(9), st.DefaultMessages()[0].ID)
	require.Len(t, st.BoardMessages(), 1)
	assert.Equal(t, int64(8), st.BoardMessages()[0].ID)
}

func TestDispatcher_NewMessage(t *testing.T) {
	st := store.New()
	var notices []model.Message
	d := NewDispatcher(st, func(m model.Message) { notices = append(notices, m) }, discard())

	d.OnFrame([]byte(`{"key":"initial_message","value":{"default_total":5,"board_total":0,"last_messages":[{"id":1}]}}`))
	d.OnFrame([]byte(`{"key":"new_message","value":{"id":2,"type":"NewOrder","body":"Order #2 placed"}}`))

	assert.Equal(t, 6, st.DefaultUnreadCount())
	assert.Equal(t, 0, st.BoardUnreadCount())
	msgs := st.DefaultMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(2), msgs[0].ID)
	require.Len(t, notices, 1)
	assert.Equal(t, "Order #2 placed", notices[0].Body)

	d.OnFrame([]byte(`{"key":"new_message","value":{"id":3,"group":"board"}}`))
	assert.Equal(t, 6, st.DefaultUnreadCount())
	assert.Equal(t, 1, st.BoardUnreadCount())
}

func TestDispatcher_MalformedFramesAreNoOps(t *testing.T) {
	st := store.New()
	d := NewDispatcher(st, nil, discard())
	before := st.Snapshot()

	for _, raw := range []string{
		`not json`,
		`{"value":{}}`,
		`{"key":"new_message","value":"oops"}`,
		`{"key":"initial_message","value":{"default_total":"many"}}`,
	} {
		d.OnFrame([]byte(raw))
	}

	assert.Equal(t, uint64(4), d.Malformed())
	assert.Equal(t, before, st.Snapshot())
}

func TestDispatcher_UnknownKeysAreIgnored(t *testing.T) {
	st := store.New()
	d := NewDispatcher(st, nil, discard())

	d.OnFrame([]byte(`{"key":"typing","value":{}}`))

	assert.Equal(t, uint64(1), d.Ignored())
	assert.Zero(t, d.Malformed())
	assert.Zero(t, st.Snapshot().Version)
}

func TestDispatcher_InitialSyncTwiceIsASet(t *testing.T) {
	st := store.New()
	d := NewDispatcher(st, nil, discard())
	frame := []byte(`{"key":"initial_message","value":{"default_total":5,"board_total":2,"last_messages":[{"id":1},{"id":2}]}}`)

	d.OnFrame(frame)
	first := st.Snapshot()
	d.OnFrame(frame)
	second := st.Snapshot()

	first.Version, second.Version = 0, 0
	assert.Equal(t, first, second)
	assert.Equal(t, 5, st.DefaultUnreadCount())
	assert.Equal(t, 2, st.BoardUnreadCount())
}

func TestDispatcher_NewMessagesCountOnePerFrame(t *testing.T) {
	st := store.New()
	d := NewDispatcher(st, nil, discard())
	st.SetUnreadCount(model.QueueDefault, 4)

	const n = 25
	for i := 0; i < n; i++ {
		d.OnFrame([]byte(fmt.Sprintf(`{"key":"new_message","value":{"id":%d,"type":"NewPayment"}}`, 100+i)))
	}

	assert.Equal(t, 4+n, st.DefaultUnreadCount())
	assert.Equal(t, int64(100+n-1), st.DefaultMessages()[0].ID)
}
