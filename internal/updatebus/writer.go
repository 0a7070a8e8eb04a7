package updatebus

import (
	"context"
	"log"
	"sync"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// DefaultDrainBatch caps how many rows one UpdateWriter wake-up dispatches.
const DefaultDrainBatch = 256

// DispatchFunc delivers a drained batch of screenupdate rows to whatever
// consumes them (e.g. a web-shared screen's long-poll listeners). A non-nil
// error leaves the batch rows in place for the next wake-up.
type DispatchFunc func(ctx context.Context, rows []types.ScreenUpdateRow) error

// UpdateWriter drains the persisted screenupdate log. It sleeps on a
// condition variable and wakes only when NotifyUpdateWriter signals it (or
// Stop is called); it does not poll the log on its own. Its start/stop
// discipline mirrors the flush ticker's so tests can control it
// deterministically.
type UpdateWriter struct {
	store *store.Store
	batch int

	mu      sync.Mutex
	cond    *sync.Cond
	running bool
	pending bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewUpdateWriter creates a writer over s. batch caps rows drained per
// wake-up (DefaultDrainBatch if zero).
func NewUpdateWriter(s *store.Store, batch int) *UpdateWriter {
	if batch <= 0 {
		batch = DefaultDrainBatch
	}
	w := &UpdateWriter{store: s, batch: batch}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start launches the background drain loop. Starting an already-running
// writer is a no-op.
func (w *UpdateWriter) Start(dispatch DispatchFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh := w.stopCh
	doneCh := w.doneCh

	go func() {
		defer close(doneCh)
		for {
			w.mu.Lock()
			for !w.pending {
				select {
				case <-stopCh:
					w.mu.Unlock()
					return
				default:
				}
				w.cond.Wait()
			}
			w.pending = false
			w.mu.Unlock()

			select {
			case <-stopCh:
				return
			default:
			}

			if err := w.drainOnce(dispatch); err != nil {
				log.Printf("updatebus: drain failed: %v", err)
			}
		}
	}()
}

// Stop signals the drain loop to exit and blocks until it has.
func (w *UpdateWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh := w.stopCh
	doneCh := w.doneCh
	w.mu.Unlock()

	w.mu.Lock()
	close(stopCh)
	w.cond.Broadcast()
	w.mu.Unlock()
	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// NotifyUpdateWriter wakes the drain loop. Callers invoke this after
// RecordScreenUpdate so newly written rows are dispatched promptly instead
// of waiting for the next unrelated wake-up.
func (w *UpdateWriter) NotifyUpdateWriter() {
	w.mu.Lock()
	w.pending = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *UpdateWriter) drainOnce(dispatch DispatchFunc) error {
	ctx := context.Background()
	for {
		count, err := CountScreenUpdates(ctx, w.store)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		rows, err := GetScreenUpdates(ctx, w.store, w.batch)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = r.UpdateId
		}

		if dispatch != nil {
			if err := dispatch(ctx, rows); err != nil {
				return err
			}
		}
		if err := DeleteScreenUpdates(ctx, w.store, ids); err != nil {
			return err
		}
		if len(rows) < w.batch {
			return nil
		}
	}
}
