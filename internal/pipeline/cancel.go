package pipeline

import "sync/atomic"

// CancelLatch is the shared cooperative cancellation flag for one run. It
// is created fresh per run, set from any goroutine, and never reset: the
// engine only ever reads it at its checkpoints.
type CancelLatch struct {
	flag atomic.Bool
}

func NewCancelLatch() *CancelLatch {
	return &CancelLatch{}
}

// Cancel sets the latch. Idempotent and safe from any goroutine.
func (l *CancelLatch) Cancel() {
	l.flag.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (l *CancelLatch) Cancelled() bool {
	return l.flag.Load()
}
