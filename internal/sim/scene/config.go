package scene

import (
	"time"

	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/camera"
	"grandtree.dev/internal/sim/dispatch"
	"grandtree.dev/internal/sim/field"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/tuning"
)

type Config struct {
	TickRateHz int
	Seed       uint64

	Tree    field.TreeShape
	Density tuning.Density
	// Envelopes caps how many of the newest greetings reveals draw from. Zero leaves
	// nothing eligible.
	Envelopes int

	Gesture        gesture.Config
	GestureEnabled bool
	Reveal         dispatch.Config
	Camera         camera.Config

	Features        protocol.Features
	ShowSenderEmail bool

	// StateEvery is the STATE broadcast period in ticks.
	StateEvery int
	// Width and Height are the initial viewport in pixels; zero means unknown.
	Width  int
	Height int
	// MaxStep bounds the dt fed to the animation after a stall.
	MaxStep time.Duration
}

// ConfigFromTuning maps a normalized tuning file onto a scene config. Gesture control
// starts disabled.
func ConfigFromTuning(t tuning.Tuning) Config {
	tree := field.DefaultTree()
	tree.Height = t.Tree.Height
	tree.Radius = t.Tree.Radius
	tree.Taper = t.Tree.Taper

	cam := camera.DefaultConfig()
	cam.RotationScale = t.Camera.RotationSpeed
	cam.HandYaw = t.Camera.HandYaw
	cam.HandPitch = t.Camera.HandPitch
	cam.SpringFrequency = t.Camera.SpringFrequency

	return Config{
		TickRateHz: t.TickRateHz,
		Seed:       t.Seed,
		Tree:       tree,
		Density:    t.Density,
		Envelopes:  t.Greetings.Envelopes,
		Gesture: gesture.Config{
			MinScore:     t.Gesture.MinScore,
			PinchRatio:   t.Gesture.PinchRatio,
			MinPinch:     t.Gesture.MinPinch,
			PalmFallback: t.Gesture.PalmFallback,
			BlockWindow:  t.Gesture.BlockWindow(),
			Debug:        t.Gesture.Debug,
		},
		Reveal: dispatch.Config{
			ShowDuration: time.Duration(t.Reveal.ShowMs) * time.Millisecond,
			HideDuration: time.Duration(t.Reveal.HideMs) * time.Millisecond,
		},
		Camera:     cam,
		Features:   protocol.Features{ShowOthersBlessings: true},
		StateEvery: 6,
		MaxStep:    100 * time.Millisecond,
	}
}

func (c Config) normalized() Config {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 60
	}
	if c.StateEvery <= 0 {
		c.StateEvery = 1
	}
	if c.MaxStep <= 0 {
		c.MaxStep = 100 * time.Millisecond
	}
	c.Envelopes = max(0, c.Envelopes)
	c.Width = max(0, c.Width)
	c.Height = max(0, c.Height)
	return c
}

// capacity is the largest count any profile may ask for, per kind.
func (c Config) capacity() tuning.Counts {
	return c.Density.Desktop.Max(c.Density.Mobile)
}

// Active is the largest per-kind count drawn at once.
func (c Config) Active() tuning.Counts {
	return activeCounts(c.capacity())
}
