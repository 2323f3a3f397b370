package store

import (
	"sync"

	"github.com/charmbracelet/log"

	"tasklist/logging"
	"tasklist/model"
)

type writeOp struct {
	erase   bool
	data    []byte
	barrier chan struct{}
}

// Writer persists state changes in the background, strictly in the order
// they were requested. Save and Erase never block on I/O and never fail;
// write errors are logged and dropped. Consecutive pending saves collapse
// into the newest one.
type Writer struct {
	kv     KV
	logger *log.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []writeOp
	closed bool
	done   chan struct{}
}

// NewWriter starts the background goroutine. Call Close to stop it.
func NewWriter(kv KV, logger *log.Logger) *Writer {
	w := &Writer{
		kv:     kv,
		logger: logging.OrDiscard(logger),
		done:   make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Save queues state to be written under StateKey.
func (w *Writer) Save(state model.AppState) {
	data, err := Encode(state)
	if err != nil {
		w.logger.Warn("state not persisted", "err", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Warn("save after close dropped")
		return
	}
	if n := len(w.queue); n > 0 && !w.queue[n-1].erase && w.queue[n-1].barrier == nil {
		w.queue[n-1].data = data
		return
	}
	w.queue = append(w.queue, writeOp{data: data})
	w.cond.Signal()
}

// Erase queues removal of the persisted state.
func (w *Writer) Erase() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Warn("erase after close dropped")
		return
	}
	w.queue = append(w.queue, writeOp{erase: true})
	w.cond.Signal()
}

// Flush blocks until every operation queued before the call has been applied.
func (w *Writer) Flush() {
	barrier := make(chan struct{})
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.queue = append(w.queue, writeOp{barrier: barrier})
	w.cond.Signal()
	w.mu.Unlock()
	<-barrier
}

// Close drains the queue and stops the goroutine. It is safe to call twice.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		op := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.apply(op)
	}
}

func (w *Writer) apply(op writeOp) {
	switch {
	case op.barrier != nil:
		close(op.barrier)
	case op.erase:
		if err := Erase(w.kv); err != nil {
			w.logger.Warn("erase persisted state failed", "err", err)
			return
		}
		w.logger.Debug("persisted state erased")
	default:
		if err := w.kv.Set(StateKey, op.data); err != nil {
			w.logger.Warn("persist state failed", "err", err)
			return
		}
		w.logger.Debug("state persisted", "bytes", len(op.data))
	}
}
