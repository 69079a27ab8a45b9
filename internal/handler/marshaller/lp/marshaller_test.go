package lpmarshaller

import (
	"encoding/json"
	"testing"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshallEvents_KeepsLatestSnapshot(t *testing.T) {
	sid := uuid.New()
	events := []event.Eventer{
		event.NewSnapshotEvent(sid, model.Snapshot{Version: 1}),
		event.NewNoticeEvent(sid, 1, &model.Message{ID: 1}),
		event.NewSnapshotEvent(sid, model.Snapshot{Version: 2, DefaultUnread: 1}),
	}

	data, err := MarshallEvents(events)
	require.NoError(t, err)

	var res struct {
		Events []struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	require.Len(t, res.Events, 2)
	assert.Equal(t, "notice", res.Events[0].Event)
	assert.Equal(t, "notifications", res.Events[1].Event)
	assert.Contains(t, string(res.Events[1].Payload), `"version":2`)
}
