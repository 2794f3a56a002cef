package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grandtree.dev/internal/sim/scenestate"
)

var t0 = time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC)

// hand builds a synthetic 21-point hand whose palm span (wrist to index knuckle) and
// thumb-to-index distance are exact.
func hand(palmSpan, pinchDist float64) []Landmark {
	pts := make([]Landmark, NumLandmarks)
	for i := range pts {
		pts[i] = Landmark{X: 0.5, Y: 0.5}
	}
	pts[Wrist] = Landmark{X: 0.5, Y: 0.8}
	pts[IndexMCP] = Landmark{X: 0.5, Y: 0.8 - palmSpan}
	pts[ThumbTip] = Landmark{X: 0.4, Y: 0.4}
	pts[IndexTip] = Landmark{X: 0.4 + pinchDist, Y: 0.4}
	return pts
}

func frame(h []Landmark, cats ...Category) Frame {
	f := Frame{Landmarks: [][]Landmark{h}}
	if len(cats) > 0 {
		f.Gestures = [][]Category{cats}
	}
	return f
}

func kinds(evs []Event) []EventKind {
	out := make([]EventKind, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Kind)
	}
	return out
}

func count(evs []Event, k EventKind) int {
	n := 0
	for _, e := range evs {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func TestNoHandEmitsOnlyHandMove(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(Frame{}, t0)
	require.Len(t, evs, 1)
	assert.Equal(t, EventHandMove, evs[0].Kind)
	assert.False(t, evs[0].Hand.Present)

	// A truncated hand counts as no hand.
	evs = p.Process(Frame{Landmarks: [][]Landmark{make([]Landmark, 5)}}, t0)
	assert.Equal(t, []EventKind{EventHandMove}, kinds(evs))
}

func TestNoHandKeepsPinchState(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	p.Process(frame(hand(0.2, 0.01)), t0)
	require.True(t, p.PinchActive())
	evs := p.Process(Frame{}, t0.Add(time.Second))
	assert.Zero(t, count(evs, EventPinchEnd))
	assert.True(t, p.PinchActive())
}

func TestHandMoveReportsWrist(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.3)), t0)
	require.NotEmpty(t, evs)
	assert.Equal(t, HandPos{X: 0.5, Y: 0.8, Present: true}, evs[0].Hand)
}

func TestPinchIsEdgeTriggered(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	dists := []float64{0.2, 0.01, 0.01, 0.03, 0.01, 0.2, 0.2}
	var seq []EventKind
	for i, d := range dists {
		for _, e := range p.Process(frame(hand(0.2, d)), t0.Add(time.Duration(i)*33*time.Millisecond)) {
			if e.Kind == EventPinchStart || e.Kind == EventPinchEnd {
				seq = append(seq, e.Kind)
			}
		}
	}
	assert.Equal(t, []EventKind{EventPinchStart, EventPinchEnd}, seq)
	assert.False(t, p.PinchActive())
}

func TestFistTakesPrecedenceOverPinch(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.01), Category{Name: ClosedFist, Score: 0.9}), t0)
	assert.Zero(t, count(evs, EventPinchStart))
	require.Equal(t, 1, count(evs, EventSceneCommand))
	assert.Equal(t, scenestate.Formed, evs[1].Mode)
	assert.False(t, p.PinchActive())
}

func TestPalmTakesPrecedenceOverPinch(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.01), Category{Name: OpenPalm, Score: 0.7}), t0)
	assert.Equal(t, []EventKind{EventHandMove, EventSceneCommand}, kinds(evs))
	assert.Equal(t, scenestate.Chaos, evs[1].Mode)
	// Palm does not open a block window.
	evs = p.Process(frame(hand(0.2, 0.01)), t0.Add(10*time.Millisecond))
	assert.Equal(t, 1, count(evs, EventPinchStart))
}

func TestBlockWindowAfterFist(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	p.Process(frame(hand(0.2, 0.3), Category{Name: ClosedFist, Score: 0.8}), t0)
	assert.Equal(t, t0.Add(700*time.Millisecond), p.BlockedUntil())

	for _, dt := range []time.Duration{50, 300, 699} {
		evs := p.Process(frame(hand(0.2, 0.01)), t0.Add(dt*time.Millisecond))
		assert.Zero(t, count(evs, EventPinchStart), "pinch fired %dms after fist", dt)
	}
	evs := p.Process(frame(hand(0.2, 0.01)), t0.Add(700*time.Millisecond))
	assert.Equal(t, 1, count(evs, EventPinchStart))
	assert.Zero(t, count(evs, EventPinchEnd))
}

func TestHeldFistExtendsBlockWindow(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	fist := Category{Name: ClosedFist, Score: 0.8}
	p.Process(frame(hand(0.2, 0.3), fist), t0)
	p.Process(frame(hand(0.2, 0.3), fist), t0.Add(500*time.Millisecond))
	evs := p.Process(frame(hand(0.2, 0.01)), t0.Add(900*time.Millisecond))
	assert.Zero(t, count(evs, EventPinchStart))
}

func TestGestureForcesPinchRelease(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.01)), t0)
	require.Equal(t, 1, count(evs, EventPinchStart))

	evs = p.Process(frame(hand(0.2, 0.01), Category{Name: ClosedFist, Score: 0.95}), t0.Add(30*time.Millisecond))
	assert.Equal(t, []EventKind{EventHandMove, EventSceneCommand, EventPinchEnd}, kinds(evs))
	assert.False(t, p.PinchActive())

	// Still pinching geometrically, but blocked: no new start until the window ends.
	evs = p.Process(frame(hand(0.2, 0.01)), t0.Add(100*time.Millisecond))
	assert.Equal(t, []EventKind{EventHandMove}, kinds(evs))
}

func TestConfidenceThresholdScenario(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.3), Category{Name: OpenPalm, Score: 0.3}), t0)
	assert.Zero(t, count(evs, EventSceneCommand))

	evs = p.Process(frame(hand(0.2, 0.3), Category{Name: OpenPalm, Score: 0.4}), t0)
	assert.Zero(t, count(evs, EventSceneCommand), "threshold is exclusive")

	evs = p.Process(frame(hand(0.2, 0.3), Category{Name: OpenPalm, Score: 0.6}), t0)
	require.Equal(t, 1, count(evs, EventSceneCommand))
	assert.Equal(t, scenestate.Chaos, evs[1].Mode)
	assert.Equal(t, OpenPalm, evs[1].Gesture)
}

func TestHighestScoreCategoryWins(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.3),
		Category{Name: OpenPalm, Score: 0.45},
		Category{Name: ClosedFist, Score: 0.8},
	), t0)
	require.Equal(t, 1, count(evs, EventSceneCommand))
	assert.Equal(t, scenestate.Formed, evs[1].Mode)
}

func TestOtherCategoriesDoNotBlockPinch(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Process(frame(hand(0.2, 0.01), Category{Name: "Thumb_Up", Score: 0.99}), t0)
	assert.Equal(t, []EventKind{EventHandMove, EventPinchStart}, kinds(evs))
}

func TestThreshold(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	assert.InDelta(t, 0.4, p.Threshold(0), 1e-12, "zero palm span falls back to 1")
	assert.InDelta(t, 0.02, p.Threshold(0.01), 1e-12, "floor")
	assert.InDelta(t, 0.08, p.Threshold(0.2), 1e-12)

	cfg := DefaultConfig()
	cfg.PinchRatio = 0.35
	assert.InDelta(t, 0.07, NewProcessor(cfg).Threshold(0.2), 1e-12)
}

func TestThresholdScalesWithHandSize(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	// Same gesture seen from twice as far: everything halves, still a pinch.
	near := p.Process(frame(hand(0.3, 0.1)), t0)
	assert.Equal(t, 1, count(near, EventPinchStart))

	q := NewProcessor(DefaultConfig())
	far := q.Process(frame(hand(0.15, 0.05)), t0)
	assert.Equal(t, 1, count(far, EventPinchStart))
}

func TestFailIsTerminal(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	evs := p.Fail("CAMERA ERROR: PERMISSION DENIED")
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Terminal)
	assert.Equal(t, EventStatus, evs[0].Kind)
	assert.True(t, p.Failed())
	assert.Nil(t, p.Process(frame(hand(0.2, 0.01)), t0))
	assert.Nil(t, p.Fail("again"))
}

func TestDebugStatuses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	p := NewProcessor(cfg)

	statuses := func(evs []Event) []string {
		var out []string
		for _, e := range evs {
			if e.Kind == EventStatus {
				out = append(out, e.Status)
			}
		}
		return out
	}
	assert.Equal(t, []string{"AI RUNNING: NO HAND"}, statuses(p.Process(Frame{}, t0)))
	assert.Equal(t, []string{"ACTION: PINCH"}, statuses(p.Process(frame(hand(0.2, 0.01)), t0)))
	assert.Equal(t, []string{"ACTION: RELEASE"}, statuses(p.Process(frame(hand(0.2, 0.3)), t0)))
	assert.Equal(t, []string{"DETECTED: FIST (87%)"},
		statuses(p.Process(frame(hand(0.2, 0.3), Category{Name: ClosedFist, Score: 0.87}), t0)))
}

func TestConfigNormalization(t *testing.T) {
	p := NewProcessor(Config{MinScore: 3, PinchRatio: -1, MinPinch: -1, BlockWindow: -time.Second})
	cfg := p.Config()
	assert.Equal(t, 1.0, cfg.MinScore)
	assert.Equal(t, 0.4, cfg.PinchRatio)
	assert.Equal(t, 0.02, cfg.MinPinch)
	assert.Equal(t, 1.0, cfg.PalmFallback)
	assert.Zero(t, cfg.BlockWindow)
}
