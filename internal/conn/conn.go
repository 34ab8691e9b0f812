// Package conn runs the per-connection pumps: an outbound batching loop that
// coalesces queued actions to cut per-frame overhead, and a receive loop that
// delivers decoded batches to a callback in order.
package conn

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/amitgk1/skribble/internal"
	"github.com/amitgk1/skribble/internal/protocol"
)

const (
	BatchSize     = 50
	FlushInterval = 50 * time.Millisecond

	queueDepth = 1024
)

// Batcher owns a connection's outbound path. Queued actions are flushed when
// the pending batch reaches BatchSize or FlushInterval has passed since the
// last flush; empty batches are never flushed. Send bypasses the queue for
// latency-sensitive actions. A write mutex keeps queued and immediate frames
// from interleaving on the wire.
type Batcher struct {
	w       io.Writer
	writeMu sync.Mutex
	queue   chan internal.Action
	done    chan struct{}
	once    sync.Once
}

func NewBatcher(w io.Writer) *Batcher {
	b := &Batcher{
		w:     w,
		queue: make(chan internal.Action, queueDepth),
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

// Queue submits an action for batched sending.
func (b *Batcher) Queue(action internal.Action) {
	select {
	case b.queue <- action:
	case <-b.done:
	}
}

// Send writes a single-element batch synchronously, skipping the queue.
func (b *Batcher) Send(action internal.Action) error {
	return b.write([]internal.Action{action})
}

// Close stops the batching loop after flushing anything still pending.
func (b *Batcher) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Batcher) run() {
	batch := make([]internal.Action, 0, BatchSize)
	lastFlush := time.Now()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := b.write(batch); err != nil {
			// The batch is dropped, not retried; a receive-side failure on
			// the same connection is what triggers cleanup.
			log.Printf("[Batcher] dropping batch of %d actions: %v", len(batch), err)
		}
		batch = batch[:0]
		lastFlush = time.Now()
	}

	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case action := <-b.queue:
			batch = append(batch, action)
			if len(batch) >= BatchSize || time.Since(lastFlush) >= FlushInterval {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-b.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case action := <-b.queue:
					batch = append(batch, action)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (b *Batcher) write(batch []internal.Action) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return protocol.SendBatch(b.w, batch)
}

// ReadLoop delivers every received action, in batch order, to onAction. It
// returns nil on a clean peer close and the receive fault otherwise; either
// way the connection is finished when it returns.
func ReadLoop(r io.Reader, onAction func(internal.Action)) error {
	for {
		batch, err := protocol.RecvBatch(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		for _, action := range batch {
			onAction(action)
		}
	}
}
