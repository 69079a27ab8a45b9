package lpmarshaller

import (
	"encoding/json"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/marshaller"
)

// Response batches every event collected during one poll.
type Response struct {
	Events []marshaller.Envelope `json:"events"`
}

// MarshallEvents converts a slice of domain events into a single JSON batch.
// A notifications snapshot supersedes any earlier one in the same batch.
func MarshallEvents(events []event.Eventer) ([]byte, error) {
	res := Response{
		Events: make([]marshaller.Envelope, 0, len(events)),
	}

	lastSnapshot := -1
	for i, ev := range events {
		if ev.GetKind() == event.StoreChanged {
			lastSnapshot = i
		}
	}

	for i, ev := range events {
		if ev.GetKind() == event.StoreChanged && i != lastSnapshot {
			continue
		}
		res.Events = append(res.Events, marshaller.MapEvent(ev))
	}

	return json.Marshal(res)
}
