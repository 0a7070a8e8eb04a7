// Package updatebus fans UpdatePackets out to live subscribers (the
// in-memory main bus) and, for web-shared screens, appends a persisted
// screenupdate log consumed by a background UpdateWriter.
package updatebus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/shellbench/shellbench/internal/types"
)

// subscriberBuffer is how many pending packets a slow subscriber is allowed
// to queue before Publish starts dropping for it.
const subscriberBuffer = 64

// updatesSubject is the JetStream subject every published UpdatePacket is
// mirrored to when JetStream is enabled.
const updatesSubject = "shellbench.updates"

// Bus is the in-memory main bus: best-effort, per-subscriber fan-out of
// UpdatePackets. A subscriber that falls behind loses intermediate packets,
// never the connection itself — callers resync dropped subscribers with a
// ConnectUpdate. Optionally also mirrors published packets to a NATS
// JetStream stream so a detached UI process can resync after a crash
// without replaying the whole screenupdate table.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]chan types.UpdatePacket
	js   nats.JetStreamContext
	log  *slog.Logger
}

// New creates an empty main bus.
func New() *Bus {
	return &Bus{subs: make(map[string]chan types.UpdatePacket), log: slog.Default()}
}

// SetLogger overrides the logger used for JetStream publish failures.
func (b *Bus) SetLogger(log *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = log
}

// SetJetStream attaches a JetStream context for update mirroring. When set,
// Publish also best-effort publishes the packet to updatesSubject after
// fanning it out to local subscribers; a publish failure is logged and
// never propagated, since JetStream here is a local resync aid, not a
// delivery guarantee.
func (b *Bus) SetJetStream(js nats.JetStreamContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.js = js
}

// JetStreamEnabled reports whether JetStream mirroring is configured.
func (b *Bus) JetStreamEnabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.js != nil
}

// Subscribe registers a new subscriber under id and returns the channel it
// should range over. Subscribing with an id already in use replaces the
// previous channel (the caller is responsible for draining/closing its old
// one first).
func (b *Bus) Subscribe(id string) <-chan types.UpdatePacket {
	ch := make(chan types.UpdatePacket, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes id's channel, if present.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Publish delivers pkt to every subscriber's channel without blocking. A
// subscriber whose channel is full drops the packet rather than stalling
// the publisher.
func (b *Bus) Publish(pkt types.UpdatePacket) {
	if pkt.IsEmpty() {
		return
	}
	b.mu.RLock()
	js := b.js
	log := b.log
	for _, ch := range b.subs {
		select {
		case ch <- pkt:
		default:
		}
	}
	b.mu.RUnlock()

	if js != nil {
		b.publishToJetStream(js, log, pkt)
	}
}

// publishToJetStream mirrors pkt to updatesSubject. Errors are logged but
// never propagated — JetStream mirroring is supplementary to local
// dispatch, not a prerequisite for it.
func (b *Bus) publishToJetStream(js nats.JetStreamContext, log *slog.Logger, pkt types.UpdatePacket) {
	data, err := json.Marshal(pkt.Updates)
	if err != nil {
		log.Warn("updatebus: marshal packet for JetStream", "error", err)
		return
	}
	if _, err := js.Publish(updatesSubject, data); err != nil {
		log.Warn("updatebus: JetStream publish failed", "subject", updatesSubject, "error", err)
	}
}

// SubscriberCount reports how many subscribers are currently registered,
// for status reporting.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// ScreenUpdateRowUpdate carries one drained screenupdate row onto the main
// bus, for web-shared screens whose long-poll listeners only hold a
// subscription to the bus and never read the screenupdate table directly.
type ScreenUpdateRowUpdate struct {
	UpdateId int64          `json:"updateid"`
	ScreenId types.ScreenId `json:"screenid"`
	LineId   types.LineId   `json:"lineid,omitempty"`
	RowType  string         `json:"updatetype"`
	UpdateTs int64          `json:"updatets"`
}

func (ScreenUpdateRowUpdate) UpdateType() string { return "screenupdaterow" }

// WebDispatch builds a DispatchFunc that republishes each drained
// screenupdate row onto b as a ScreenUpdateRowUpdate.
func (b *Bus) WebDispatch() DispatchFunc {
	return func(_ context.Context, rows []types.ScreenUpdateRow) error {
		var pkt types.UpdatePacket
		for _, row := range rows {
			pkt.AddUpdate(ScreenUpdateRowUpdate{
				UpdateId: row.UpdateId,
				ScreenId: row.ScreenId,
				LineId:   row.LineId,
				RowType:  string(row.UpdateType),
				UpdateTs: row.UpdateTs,
			})
		}
		b.Publish(pkt)
		return nil
	}
}
