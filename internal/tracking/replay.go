package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	persistlog "grandtree.dev/internal/persistence/log"
	"grandtree.dev/internal/sim/gesture"
)

// Replay is a Recognizer that plays back the frames of a recorded session in order.
type Replay struct {
	mu     sync.Mutex
	recs   []persistlog.TickRecord
	next   int
	closed bool
}

func NewReplay(recs []persistlog.TickRecord) *Replay {
	return &Replay{recs: recs}
}

// OpenReplay loads a session directory written by persistlog.SessionRecorder.
func OpenReplay(dir string) (*Replay, error) {
	var recs []persistlog.TickRecord
	err := persistlog.ReadSession(dir, func(r persistlog.TickRecord) error {
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewReplay(recs), nil
}

func (r *Replay) Recognize(ctx context.Context, _ time.Duration) (gesture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return gesture.Frame{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return gesture.Frame{}, ErrClosed
	}
	if r.next >= len(r.recs) {
		return gesture.Frame{}, fmt.Errorf("%w: replay finished after %d frames", ErrClosed, len(r.recs))
	}
	f := r.recs[r.next].Frame
	r.next++
	return f, nil
}

// Remaining is the number of frames not yet returned.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs) - r.next
}

func (r *Replay) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
