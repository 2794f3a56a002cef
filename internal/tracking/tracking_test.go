package tracking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "grandtree.dev/internal/persistence/log"
	"grandtree.dev/internal/sim/gesture"
)

// gated returns one frame per value sent on release and counts concurrent calls.
type gated struct {
	release chan gesture.Frame
	active  atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
}

func newGated() *gated { return &gated{release: make(chan gesture.Frame)} }

func (g *gated) Recognize(ctx context.Context, _ time.Duration) (gesture.Frame, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	g.calls.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case f := <-g.release:
		return f, nil
	case <-ctx.Done():
		return gesture.Frame{}, ctx.Err()
	}
}

func (g *gated) Close() error { return nil }

func fistFrame(score float64) gesture.Frame {
	return gesture.Frame{Gestures: [][]gesture.Category{{{Name: gesture.ClosedFist, Score: score}}}}
}

func TestPumpKeepsOneCallOutstanding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := newGated()
	t0 := time.Unix(0, 0)
	p := NewPump(g, t0)

	for i := range 10 {
		_, got := p.Poll(ctx, t0.Add(time.Duration(i)*16*time.Millisecond))
		assert.False(t, got)
	}
	assert.True(t, p.InFlight())
	calls, _ := p.Stats()
	assert.Equal(t, uint64(1), calls)

	g.release <- fistFrame(0.9)
	require.Eventually(t, func() bool { return !p.InFlight() }, time.Second, time.Millisecond)

	res, got := p.Poll(ctx, t0.Add(time.Second))
	require.True(t, got)
	require.NoError(t, res.Err)
	assert.Equal(t, time.Duration(0), res.TS, "timestamp of the call that produced it")
	assert.Equal(t, 0.9, res.Frame.Gestures[0][0].Score)

	cancel()
	p.Wait()
	assert.Equal(t, int32(1), g.peak.Load())
}

func TestPumpStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := newGated()
	p := NewPump(g, time.Unix(0, 0))
	cancel()
	p.Poll(ctx, time.Unix(1, 0))
	assert.False(t, p.InFlight())
	assert.Equal(t, int32(0), g.calls.Load())
}

func TestSendLatestDropsOldest(t *testing.T) {
	ch := make(chan int, 1)
	assert.False(t, sendLatest(ch, 1))
	assert.True(t, sendLatest(ch, 2))
	assert.Equal(t, 2, <-ch)
}

func TestSetupWrapsErrors(t *testing.T) {
	camErr := errors.New("permission denied")
	_, err := Setup(context.Background(), "camera", func(context.Context) (gesture.Recognizer, error) {
		return nil, camErr
	})
	assert.ErrorIs(t, err, ErrSetup)
	assert.ErrorIs(t, err, camErr)

	_, err = Setup(context.Background(), "nil", func(context.Context) (gesture.Recognizer, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrSetup)

	rec, err := Setup(context.Background(), "remote", func(context.Context) (gesture.Recognizer, error) {
		return NewRemote(), nil
	})
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestRemote(t *testing.T) {
	ctx := context.Background()
	r := NewRemote()
	require.True(t, r.Attach())
	assert.False(t, r.Attach(), "one tracker at a time")

	r.Push(fistFrame(0.5))
	r.Push(fistFrame(0.7))
	f, err := r.Recognize(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.7, f.Gestures[0][0].Score, "latest frame wins")
	received, dropped := r.Stats()
	assert.Equal(t, uint64(2), received)
	assert.Equal(t, uint64(1), dropped)

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = r.Recognize(tctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r.Detach()
	assert.False(t, r.Attached())

	r.Fail("ERROR: CAMERA PERMISSION DENIED")
	r.Push(fistFrame(0.9))
	_, err = r.Recognize(ctx, 0)
	assert.ErrorIs(t, err, ErrSetup)
	assert.ErrorContains(t, err, "CAMERA PERMISSION DENIED")
}

func TestRemoteClose(t *testing.T) {
	r := NewRemote()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err := r.Recognize(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReplay(t *testing.T) {
	base := t.TempDir()
	rec := persistlog.NewSessionRecorder(base)
	require.NoError(t, rec.WriteTick(persistlog.TickRecord{Tick: 1, Frame: fistFrame(0.6)}))
	require.NoError(t, rec.WriteTick(persistlog.TickRecord{Tick: 2, Frame: fistFrame(0.8)}))
	require.NoError(t, rec.Close())

	r, err := OpenReplay(rec.Dir())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Remaining())

	ctx := context.Background()
	f, err := r.Recognize(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.6, f.Gestures[0][0].Score)
	f, err = r.Recognize(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.8, f.Gestures[0][0].Score)

	_, err = r.Recognize(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = OpenReplay(t.TempDir())
	assert.Error(t, err)
}
