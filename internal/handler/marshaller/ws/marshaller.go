package wsmarshaller

import (
	"encoding/json"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/marshaller"
)

// MarshallDeliveryEvent prepares one text frame for a WebSocket viewer.
// The encoded bytes are cached on the event, so a session with several open
// tabs encodes each event once.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	if cached, ok := ev.GetCached().([]byte); ok {
		return cached, nil
	}

	data, err := json.Marshal(marshaller.MapEvent(ev))
	if err != nil {
		return nil, err
	}

	ev.SetCached(data)
	return data, nil
}
