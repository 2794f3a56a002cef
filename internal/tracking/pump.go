// Package tracking drives a hand-tracking Recognizer from the scene loop without ever
// letting inference calls pile up.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"grandtree.dev/internal/sim/gesture"
)

var (
	// ErrSetup marks a recognizer that could not be started (model load, camera access).
	// It is permanent.
	ErrSetup = errors.New("tracking: setup failed")
	// ErrClosed is returned once a recognizer has been closed or has no more frames.
	ErrClosed = errors.New("tracking: recognizer closed")
)

// Result is one finished Recognize call.
type Result struct {
	TS    time.Duration
	Frame gesture.Frame
	Err   error
}

// Pump keeps at most one Recognize call outstanding. Completed results wait in a
// one-slot mailbox; a newer result replaces an unread older one.
type Pump struct {
	rec   gesture.Recognizer
	start time.Time

	results  chan Result
	inflight atomic.Bool
	wg       sync.WaitGroup

	calls   atomic.Uint64
	dropped atomic.Uint64
}

// NewPump measures recognizer timestamps from start.
func NewPump(rec gesture.Recognizer, start time.Time) *Pump {
	return &Pump{rec: rec, start: start, results: make(chan Result, 1)}
}

// Poll returns the newest completed result, if any, and starts the next call when none
// is in flight. It never blocks. No call is started once ctx is done.
func (p *Pump) Poll(ctx context.Context, now time.Time) (Result, bool) {
	var (
		res Result
		got bool
	)
	select {
	case res = <-p.results:
		got = true
	default:
	}
	if ctx.Err() == nil && p.inflight.CompareAndSwap(false, true) {
		p.calls.Add(1)
		p.wg.Add(1)
		ts := now.Sub(p.start)
		go func() {
			defer p.wg.Done()
			f, err := p.rec.Recognize(ctx, ts)
			if sendLatest(p.results, Result{TS: ts, Frame: f, Err: err}) {
				p.dropped.Add(1)
			}
			p.inflight.Store(false)
		}()
	}
	return res, got
}

func (p *Pump) InFlight() bool { return p.inflight.Load() }

// Wait blocks until the outstanding call (if any) returns.
func (p *Pump) Wait() { p.wg.Wait() }

// Stats reports calls started and results overwritten before they were read.
func (p *Pump) Stats() (calls, dropped uint64) { return p.calls.Load(), p.dropped.Load() }

// sendLatest delivers v, dropping one unread value if the channel is full. It reports
// whether a value was dropped.
func sendLatest[T any](ch chan T, v T) bool {
	select {
	case ch <- v:
		return false
	default:
	}
	dropped := false
	select {
	case <-ch:
		dropped = true
	default:
	}
	select {
	case ch <- v:
	default:
	}
	return dropped
}

// Opener starts a recognizer (loads the model, opens the camera stream).
type Opener func(ctx context.Context) (gesture.Recognizer, error)

// Setup runs open once, tracing it. Failures wrap ErrSetup.
func Setup(ctx context.Context, name string, open Opener) (gesture.Recognizer, error) {
	ctx, span := otel.Tracer("grandtree.dev/internal/tracking").Start(ctx, "tracking.setup",
		trace.WithAttributes(attribute.String("tracking.recognizer", name)))
	defer span.End()

	rec, err := open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrSetup, name, err)
	}
	if rec == nil {
		err := fmt.Errorf("%w: %s: no recognizer", ErrSetup, name)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}
