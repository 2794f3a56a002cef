package gesture

import (
	"context"
	"math"
	"time"
)

// Hand landmark indices used by the recognizer (MediaPipe hand model).
const (
	Wrist        = 0
	ThumbTip     = 4
	IndexMCP     = 5
	IndexTip     = 8
	NumLandmarks = 21
)

// Category names the classifier reports that the scene reacts to.
const (
	OpenPalm   = "Open_Palm"
	ClosedFist = "Closed_Fist"
)

// Landmark is a normalized image-space point; X and Y are in [0, 1].
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Category struct {
	Name  string  `json:"categoryName"`
	Score float64 `json:"score"`
}

// Frame is one recognizer result: per detected hand, its landmarks and its ranked
// gesture categories.
type Frame struct {
	Landmarks [][]Landmark `json:"landmarks"`
	Gestures  [][]Category `json:"gestures"`
}

// Hand returns the first hand's landmarks if a complete hand was detected.
func (f Frame) Hand() ([]Landmark, bool) {
	if len(f.Landmarks) == 0 || len(f.Landmarks[0]) < NumLandmarks {
		return nil, false
	}
	return f.Landmarks[0], true
}

// Top returns the highest-scoring category of the first hand.
func (f Frame) Top() (Category, bool) {
	if len(f.Gestures) == 0 || len(f.Gestures[0]) == 0 {
		return Category{}, false
	}
	best := f.Gestures[0][0]
	for _, c := range f.Gestures[0][1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}

func dist2D(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Recognizer is the hand-tracking collaborator. Recognize may block for longer than a
// frame; callers keep at most one call outstanding.
type Recognizer interface {
	Recognize(ctx context.Context, ts time.Duration) (Frame, error)
	Close() error
}
