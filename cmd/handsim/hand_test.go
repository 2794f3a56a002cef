package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scenestate"
)

func kindsOf(evs []gesture.Event) []gesture.EventKind {
	out := make([]gesture.EventKind, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Kind)
	}
	return out
}

func TestHandFramesDriveTheProcessor(t *testing.T) {
	proc := gesture.NewProcessor(gesture.DefaultConfig())
	t0 := time.Unix(100, 0)

	evs := proc.Process(handFrame(poseFist, 0.5, 0.6), t0)
	require.Len(t, evs, 2)
	assert.Equal(t, gesture.EventSceneCommand, evs[1].Kind)
	assert.Equal(t, scenestate.Formed, evs[1].Mode)

	// Past the block window an idle hand does not pinch, a pinch does.
	t1 := t0.Add(time.Second)
	assert.Equal(t, []gesture.EventKind{gesture.EventHandMove}, kindsOf(proc.Process(handFrame(poseIdle, 0.5, 0.6), t1)))
	assert.Equal(t, []gesture.EventKind{gesture.EventHandMove, gesture.EventPinchStart},
		kindsOf(proc.Process(handFrame(posePinch, 0.45, 0.62), t1.Add(33*time.Millisecond))))
	assert.Equal(t, []gesture.EventKind{gesture.EventHandMove, gesture.EventPinchEnd},
		kindsOf(proc.Process(handFrame(poseIdle, 0.45, 0.62), t1.Add(66*time.Millisecond))))

	evs = proc.Process(handFrame(posePalm, 0.5, 0.6), t1.Add(time.Second))
	require.Len(t, evs, 2)
	assert.Equal(t, scenestate.Chaos, evs[1].Mode)

	evs = proc.Process(handFrame(poseNone, 0, 0), t1.Add(2*time.Second))
	require.Len(t, evs, 1)
	assert.False(t, evs[0].Hand.Present)
}

func TestPoseAtLoopsTheScript(t *testing.T) {
	script := []step{{poseFist, time.Second}, {posePinch, 500 * time.Millisecond}}
	assert.Equal(t, poseFist, poseAt(script, 0))
	assert.Equal(t, posePinch, poseAt(script, 1200*time.Millisecond))
	assert.Equal(t, poseFist, poseAt(script, 1600*time.Millisecond))
	assert.Equal(t, poseNone, poseAt(nil, time.Second))
}

func TestParsePose(t *testing.T) {
	p, err := parsePose(" Pinch ")
	require.NoError(t, err)
	assert.Equal(t, posePinch, p)

	_, err = parsePose("wave")
	assert.Error(t, err)
}
