package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage_Queue(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want Queue
	}{
		{"type implies default", Message{Type: NewQuestion}, QueueDefault},
		{"explicit board group", Message{Type: NewReview, Group: QueueBoard}, QueueBoard},
		{"explicit default group", Message{Type: "BoardPost", Group: QueueDefault}, QueueDefault},
		{"unknown group falls back to type", Message{Type: NewOrder, Group: "archive"}, QueueDefault},
		{"unknown type without group", Message{Type: "Announcement"}, QueueDefault},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.msg.Queue())
		})
	}
}

func TestTypeQueues_CoverEveryMessageType(t *testing.T) {
	for _, typ := range MessageTypes {
		_, ok := TypeQueues[typ]
		assert.True(t, ok, "no queue for %s", typ)
	}
}
