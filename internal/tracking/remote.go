package tracking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"grandtree.dev/internal/sim/gesture"
)

// Remote is a Recognizer fed by an external tracker, typically a browser running the
// hand landmarker that streams HAND messages over the websocket transport.
type Remote struct {
	frames chan gesture.Frame

	failOnce sync.Once
	failed   chan struct{}
	failErr  error

	closeOnce sync.Once
	done      chan struct{}

	attached atomic.Bool
	received atomic.Uint64
	dropped  atomic.Uint64
}

func NewRemote() *Remote {
	return &Remote{
		frames: make(chan gesture.Frame, 1),
		failed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Push hands over the tracker's latest frame. An unread older frame is replaced.
func (r *Remote) Push(f gesture.Frame) {
	r.received.Add(1)
	if sendLatest(r.frames, f) {
		r.dropped.Add(1)
	}
}

// Fail records a permanent tracker-side failure (camera permission, model load).
func (r *Remote) Fail(reason string) {
	r.failOnce.Do(func() {
		r.failErr = fmt.Errorf("%w: %s", ErrSetup, reason)
		close(r.failed)
	})
}

// Attach marks whether a tracker connection currently feeds this recognizer. It reports
// false when another tracker is already attached.
func (r *Remote) Attach() bool   { return r.attached.CompareAndSwap(false, true) }
func (r *Remote) Detach()        { r.attached.Store(false) }
func (r *Remote) Attached() bool { return r.attached.Load() }

// Stats reports frames pushed and frames replaced before they were read.
func (r *Remote) Stats() (received, dropped uint64) { return r.received.Load(), r.dropped.Load() }

// Recognize waits for the next pushed frame.
func (r *Remote) Recognize(ctx context.Context, _ time.Duration) (gesture.Frame, error) {
	select {
	case <-r.failed:
		return gesture.Frame{}, r.failErr
	default:
	}
	select {
	case <-ctx.Done():
		return gesture.Frame{}, ctx.Err()
	case <-r.done:
		return gesture.Frame{}, ErrClosed
	case <-r.failed:
		return gesture.Frame{}, r.failErr
	case f := <-r.frames:
		return f, nil
	}
}

func (r *Remote) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}
