package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"grandtree.dev/internal/sim/gesture"
)

type pose int

const (
	poseNone pose = iota
	poseIdle
	posePalm
	poseFist
	posePinch
)

func parsePose(s string) (pose, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return poseNone, nil
	case "idle":
		return poseIdle, nil
	case "palm":
		return posePalm, nil
	case "fist":
		return poseFist, nil
	case "pinch":
		return posePinch, nil
	default:
		return poseNone, fmt.Errorf("unknown pose %q", s)
	}
}

// step holds one pose for a while.
type step struct {
	pose pose
	dur  time.Duration
}

// cycle forms the tree, waits out the fist block window, then pinches and lets go,
// then scatters the tree again.
var cycle = []step{
	{poseIdle, time.Second},
	{poseFist, 2 * time.Second},
	{poseIdle, time.Second},
	{posePinch, 1500 * time.Millisecond},
	{poseIdle, 2 * time.Second},
	{posePalm, 2 * time.Second},
	{poseNone, time.Second},
}

// poseAt is the pose the looping script shows at elapsed.
func poseAt(script []step, elapsed time.Duration) pose {
	var total time.Duration
	for _, s := range script {
		total += s.dur
	}
	if total <= 0 {
		return poseNone
	}
	elapsed %= total
	for _, s := range script {
		if elapsed < s.dur {
			return s.pose
		}
		elapsed -= s.dur
	}
	return poseNone
}

// handFrame builds a recognizer result with the wrist near (cx, cy). The hand spans
// about 0.2 of the image; a pinch brings thumb and index tips together.
func handFrame(p pose, cx, cy float64) gesture.Frame {
	if p == poseNone {
		return gesture.Frame{}
	}
	lm := make([]gesture.Landmark, gesture.NumLandmarks)
	for i := range lm {
		// Fan the remaining joints upward from the wrist.
		a := math.Pi * (0.25 + 0.5*float64(i)/float64(gesture.NumLandmarks))
		r := 0.05 + 0.15*float64(i%4+1)/4
		lm[i] = gesture.Landmark{X: cx + r*math.Cos(a), Y: cy - r*math.Sin(a)}
	}
	lm[gesture.Wrist] = gesture.Landmark{X: cx, Y: cy}
	lm[gesture.IndexMCP] = gesture.Landmark{X: cx, Y: cy - 0.1}
	lm[gesture.IndexTip] = gesture.Landmark{X: cx + 0.02, Y: cy - 0.2}
	lm[gesture.ThumbTip] = gesture.Landmark{X: cx - 0.08, Y: cy - 0.1}
	if p == posePinch {
		lm[gesture.ThumbTip] = gesture.Landmark{X: cx + 0.025, Y: cy - 0.19}
	}

	var cats []gesture.Category
	switch p {
	case posePalm:
		cats = []gesture.Category{{Name: gesture.OpenPalm, Score: 0.91}}
	case poseFist:
		cats = []gesture.Category{{Name: gesture.ClosedFist, Score: 0.87}}
	default:
		cats = []gesture.Category{{Name: "None", Score: 0.7}}
	}
	return gesture.Frame{
		Landmarks: [][]gesture.Landmark{lm},
		Gestures:  [][]gesture.Category{cats},
	}
}

// drift moves the hand slowly around the frame centre.
func drift(elapsed time.Duration) (x, y float64) {
	t := elapsed.Seconds()
	return 0.5 + 0.15*math.Sin(t*0.7), 0.6 + 0.08*math.Cos(t*0.9)
}
