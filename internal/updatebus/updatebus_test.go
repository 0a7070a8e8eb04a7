package updatebus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(context.Background(), store.Config{DBPath: dbPath})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMainBusPublishDeliversToSubscribers(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("client1")

	pkt := types.UpdatePacket{}
	pkt.AddUpdate(types.ActiveSessionIdUpdate{SessionId: "sess1"})
	bus.Publish(pkt)

	select {
	case got := <-ch:
		if len(got.Updates) != 1 {
			t.Fatalf("len(Updates) = %d, want 1", len(got.Updates))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published packet")
	}
}

func TestMainBusPublishDropsForFullSubscriber(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("slow")

	pkt := types.UpdatePacket{}
	pkt.AddUpdate(types.ActiveSessionIdUpdate{SessionId: "sess1"})
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(pkt)
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count != subscriberBuffer {
				t.Fatalf("count = %d, want %d (excess should have been dropped)", count, subscriberBuffer)
			}
			return
		}
	}
}

func TestMainBusUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("client1")
	bus.Unsubscribe("client1")

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	if bus.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", bus.SubscriberCount())
	}
}

func TestRecordScreenUpdateCoalescesLineNewAndPairsPtyPos(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := RecordScreenUpdate(ctx, s, types.SULineRenderer, "screen1", "line1"); err != nil {
		t.Fatalf("RecordScreenUpdate renderer: %v", err)
	}
	if err := RecordScreenUpdate(ctx, s, types.SULineNew, "screen1", "line1"); err != nil {
		t.Fatalf("RecordScreenUpdate line:new: %v", err)
	}

	rows, err := GetScreenUpdates(ctx, s, 10)
	if err != nil {
		t.Fatalf("GetScreenUpdates: %v", err)
	}
	// The renderer row should have been coalesced away, leaving line:new and
	// its paired pty:pos.
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2: %+v", len(rows), rows)
	}
	if rows[0].UpdateType != types.SULineNew {
		t.Fatalf("rows[0].UpdateType = %v, want line:new", rows[0].UpdateType)
	}
	if rows[1].UpdateType != types.SUPtyPos {
		t.Fatalf("rows[1].UpdateType = %v, want pty:pos", rows[1].UpdateType)
	}
}

func TestCountAndDeleteScreenUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := RecordScreenUpdate(ctx, s, types.SUCmdStatus, "screen1", "line1"); err != nil {
		t.Fatalf("RecordScreenUpdate: %v", err)
	}
	count, err := CountScreenUpdates(ctx, s)
	if err != nil {
		t.Fatalf("CountScreenUpdates: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	rows, err := GetScreenUpdates(ctx, s, 10)
	if err != nil {
		t.Fatalf("GetScreenUpdates: %v", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.UpdateId
	}
	if err := DeleteScreenUpdates(ctx, s, ids); err != nil {
		t.Fatalf("DeleteScreenUpdates: %v", err)
	}

	count, err = CountScreenUpdates(ctx, s)
	if err != nil {
		t.Fatalf("CountScreenUpdates after delete: %v", err)
	}
	if count != 0 {
		t.Fatalf("count after delete = %d, want 0", count)
	}
}

func TestUpdateWriterDrainsOnNotify(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := RecordScreenUpdate(ctx, s, types.SUCmdStatus, "screen1", "line1"); err != nil {
		t.Fatalf("RecordScreenUpdate: %v", err)
	}

	dispatched := make(chan int, 1)
	w := NewUpdateWriter(s, 10)
	w.Start(func(ctx context.Context, rows []types.ScreenUpdateRow) error {
		dispatched <- len(rows)
		return nil
	})
	defer w.Stop()

	w.NotifyUpdateWriter()

	select {
	case n := <-dispatched:
		if n != 1 {
			t.Fatalf("dispatched %d rows, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	count, err := CountScreenUpdates(ctx, s)
	if err != nil {
		t.Fatalf("CountScreenUpdates: %v", err)
	}
	if count != 0 {
		t.Fatalf("count after drain = %d, want 0", count)
	}
}
