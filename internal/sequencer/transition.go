package sequencer

import (
	"context"
	"sync"
	"time"
)

// TargetFinalization is the scroll target for the finalization panel shown
// once every step is answered.
const TargetFinalization = -1

// Presenter performs the visual side of a transition. Calls carry the
// transition's sequence number; a presenter that cannot apply them
// synchronously should drop calls for which IsCurrent(seq) is false by the
// time they are handled.
type Presenter interface {
	ScrollTo(seq uint64, target int)
	Focus(seq uint64, step int)
}

type plan struct {
	target      int
	scrollDelay time.Duration
	focus       bool
	focusDelay  time.Duration
}

// runner executes at most one pending transition. Starting a new one
// cancels the previous without waiting for it.
type runner struct {
	presenter Presenter

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func newRunner(p Presenter) *runner {
	return &runner{presenter: p}
}

func (r *runner) start(p plan) uint64 {
	r.mu.Lock()
	if r.closed || r.presenter == nil {
		r.mu.Unlock()
		return 0
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()

		if !sleep(ctx, p.scrollDelay) || !r.IsCurrent(seq) {
			return
		}
		r.presenter.ScrollTo(seq, p.target)

		if !p.focus {
			return
		}
		if !sleep(ctx, p.focusDelay) || !r.IsCurrent(seq) {
			return
		}
		r.presenter.Focus(seq, p.target)
	}()
	return seq
}

// IsCurrent reports whether seq is the latest transition.
func (r *runner) IsCurrent(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return seq != 0 && seq == r.seq
}

func (r *runner) close() {
	r.mu.Lock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
