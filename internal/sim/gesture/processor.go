// Package gesture turns per-frame hand landmarks into debounced scene signals.
package gesture

import (
	"fmt"
	"math"
	"time"

	"grandtree.dev/internal/sim/scenestate"
)

type Config struct {
	// MinScore is the exclusive confidence a palm/fist classification must exceed.
	MinScore float64
	// PinchRatio scales the palm span (wrist to index knuckle) into the pinch threshold.
	PinchRatio float64
	// MinPinch is the smallest pinch threshold, in normalized image units.
	MinPinch float64
	// PalmFallback replaces a degenerate zero palm span.
	PalmFallback float64
	// BlockWindow suppresses pinch detection after a fist.
	BlockWindow time.Duration
	// Debug adds human-readable Status events for every recognition.
	Debug bool
}

func DefaultConfig() Config {
	return Config{
		MinScore:     0.4,
		PinchRatio:   0.4,
		MinPinch:     0.02,
		PalmFallback: 1,
		BlockWindow:  700 * time.Millisecond,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if math.IsNaN(c.MinScore) || c.MinScore < 0 {
		c.MinScore = 0
	}
	if c.MinScore > 1 {
		c.MinScore = 1
	}
	if !(c.PinchRatio > 0) {
		c.PinchRatio = d.PinchRatio
	}
	if !(c.MinPinch >= 0) {
		c.MinPinch = d.MinPinch
	}
	if !(c.PalmFallback > 0) {
		c.PalmFallback = d.PalmFallback
	}
	if c.BlockWindow < 0 {
		c.BlockWindow = 0
	}
	return c
}

// Processor holds the pinch edge state and the post-fist block window. It is not safe
// for concurrent use; the scene loop is its only caller.
type Processor struct {
	cfg Config

	pinchActive  bool
	blockedUntil time.Time
	failed       bool
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{cfg: cfg.normalized()}
}

func (p *Processor) Config() Config          { return p.cfg }
func (p *Processor) PinchActive() bool       { return p.pinchActive }
func (p *Processor) BlockedUntil() time.Time { return p.blockedUntil }
func (p *Processor) Failed() bool            { return p.failed }

// Fail stops the processor for good after a setup failure. The returned terminal status
// is the last event it ever produces.
func (p *Processor) Fail(reason string) []Event {
	if p.failed {
		return nil
	}
	p.failed = true
	p.pinchActive = false
	return []Event{TerminalStatus(reason)}
}

// Process classifies one frame observed at now.
//
// At most one of {scene command, pinch start} is produced per call: a recognized palm or
// fist, or an active block window, forces any held pinch to end and skips pinch
// detection entirely.
func (p *Processor) Process(f Frame, now time.Time) []Event {
	if p.failed {
		return nil
	}

	hand, ok := f.Hand()
	if !ok {
		out := []Event{{Kind: EventHandMove}}
		if p.cfg.Debug {
			out = append(out, Status("AI RUNNING: NO HAND"))
		}
		return out
	}

	out := make([]Event, 0, 3)
	out = append(out, Event{Kind: EventHandMove, Hand: HandPos{X: hand[Wrist].X, Y: hand[Wrist].Y, Present: true}})

	gesturing := false
	if top, ok := f.Top(); ok && top.Score > p.cfg.MinScore {
		switch top.Name {
		case OpenPalm:
			gesturing = true
			out = append(out, SceneCommand(scenestate.Chaos, top.Name, top.Score))
			if p.cfg.Debug {
				out = append(out, Status(fmt.Sprintf("DETECTED: OPEN PALM (%.0f%%)", top.Score*100)))
			}
		case ClosedFist:
			gesturing = true
			out = append(out, SceneCommand(scenestate.Formed, top.Name, top.Score))
			p.blockedUntil = now.Add(p.cfg.BlockWindow)
			if p.cfg.Debug {
				out = append(out, Status(fmt.Sprintf("DETECTED: FIST (%.0f%%)", top.Score*100)))
			}
		}
	}

	if gesturing || now.Before(p.blockedUntil) {
		if p.pinchActive {
			p.pinchActive = false
			out = append(out, Event{Kind: EventPinchEnd})
		}
		return out
	}

	pinching := p.isPinching(hand)
	switch {
	case pinching && !p.pinchActive:
		p.pinchActive = true
		out = append(out, Event{Kind: EventPinchStart})
		if p.cfg.Debug {
			out = append(out, Status("ACTION: PINCH"))
		}
	case !pinching && p.pinchActive:
		p.pinchActive = false
		out = append(out, Event{Kind: EventPinchEnd})
		if p.cfg.Debug {
			out = append(out, Status("ACTION: RELEASE"))
		}
	}
	return out
}

// Threshold is the pinch distance below which a hand with the given palm span pinches.
func (p *Processor) Threshold(palmSpan float64) float64 {
	if palmSpan == 0 || math.IsNaN(palmSpan) {
		palmSpan = p.cfg.PalmFallback
	}
	return math.Max(p.cfg.MinPinch, palmSpan*p.cfg.PinchRatio)
}

func (p *Processor) isPinching(hand []Landmark) bool {
	palm := dist2D(hand[IndexMCP], hand[Wrist])
	return dist2D(hand[ThumbTip], hand[IndexTip]) < p.Threshold(palm)
}
