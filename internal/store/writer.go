package store

import (
	"database/sql"

	"netwatch/internal/apperr"
	"netwatch/internal/obslog"
)

// writeJob is one unit of serialized write work. result is nil for
// fire-and-forget writes queued by periodic tasks that don't need to
// observe the outcome synchronously.
type writeJob struct {
	fn     func(*sql.DB) error
	result chan error
}

// writer serializes every write against db through a single goroutine
// consuming a buffered channel, exactly as the teacher's DBWriter does
// (cmd/server/db.go). Concurrent readers bypass the writer entirely and
// hit db directly — sql.DB already pools read connections safely under
// WAL. This is the embodiment of spec.md §5's "single-writer serialization
// discipline".
type writer struct {
	db      *sql.DB
	writeCh chan writeJob
	done    chan struct{}
	stopped chan struct{}
}

func newWriter(db *sql.DB, bufferSize int) *writer {
	w := &writer{
		db:      db,
		writeCh: make(chan writeJob, bufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) run() {
	defer close(w.stopped)
	for {
		select {
		case job := <-w.writeCh:
			w.exec(job)
		case <-w.done:
			// Drain whatever is already queued so a mid-flight
			// transaction from a task completes before the store closes.
			for {
				select {
				case job := <-w.writeCh:
					w.exec(job)
				default:
					return
				}
			}
		}
	}
}

func (w *writer) exec(job writeJob) {
	err := job.fn(w.db)
	if job.result != nil {
		job.result <- err
		return
	}
	if err != nil {
		obslog.Warn("store: background write failed: %v", err)
	}
}

// Async queues fn as fire-and-forget work. Used for debounced lastSeen
// bumps where losing an update under queue pressure is acceptable.
func (w *writer) Async(fn func(*sql.DB) error) {
	select {
	case w.writeCh <- writeJob{fn: fn}:
	default:
		obslog.Warn("store: write queue full, dropping write")
	}
}

// Sync queues fn and blocks for its result. Used by every task that needs
// to know whether its batch committed (sampler ticks, aggregator runs,
// retention sweeps).
func (w *writer) Sync(fn func(*sql.DB) error) error {
	result := make(chan error, 1)
	select {
	case w.writeCh <- writeJob{fn: fn, result: result}:
	case <-w.done:
		return apperr.TransientIO("store closing", nil)
	}
	return <-result
}

// Close stops accepting new work and waits for the queue to drain.
func (w *writer) Close() {
	close(w.done)
	<-w.stopped
}
