package service

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/store"
)

// NoticeSink receives the transient notice raised for each pushed message.
type NoticeSink func(msg model.Message)

// Dispatcher turns inbound frames into store mutations. OnFrame is called from the
// transport's single reader, so frames are applied in arrival order.
type Dispatcher struct {
	store    *store.Store
	onNotice NoticeSink
	logger   *slog.Logger

	malformed atomic.Uint64
	ignored   atomic.Uint64
}

func NewDispatcher(st *store.Store, onNotice NoticeSink, logger *slog.Logger) *Dispatcher {
	if onNotice == nil {
		onNotice = func(model.Message) {}
	}
	return &Dispatcher{store: st, onNotice: onNotice, logger: logger}
}

func (d *Dispatcher) OnFrame(raw []byte) {
	var f model.Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Key == "" {
		d.reject(raw, err)
		return
	}

	switch f.Key {
	case model.KeyNewMessage:
		var m model.Message
		if err := json.Unmarshal(f.Value, &m); err != nil {
			d.reject(raw, err)
			return
		}
		d.store.PrependMessage(m)
		d.store.IncrementUnreadCount(m.Queue())
		d.onNotice(m)

	case model.KeyInitialMessage:
		var p model.InitialPayload
		if err := json.Unmarshal(f.Value, &p); err != nil {
			d.reject(raw, err)
			return
		}
		d.store.SetUnreadCount(model.QueueDefault, p.DefaultTotal)
		d.store.SetUnreadCount(model.QueueBoard, p.BoardTotal)
		d.store.ReplaceMessages(p.LastMessages)

	default:
		d.ignored.Add(1)
		d.logger.Debug("FRAME_IGNORED", "key", f.Key)
	}
}

// Malformed counts frames that could not be decoded.
func (d *Dispatcher) Malformed() uint64 { return d.malformed.Load() }

// Ignored counts well-formed frames with an unknown key.
func (d *Dispatcher) Ignored() uint64 { return d.ignored.Load() }

func (d *Dispatcher) reject(raw []byte, err error) {
	d.malformed.Add(1)
	const preview = 128
	if len(raw) > preview {
		raw = raw[:preview]
	}
	d.logger.Debug("FRAME_MALFORMED", "err", err, "frame", string(raw))
}
