// Package tuning loads the scene's tunable constants from tuning.yaml.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int    `yaml:"tick_rate_hz"`
	Seed       uint64 `yaml:"seed"`

	Tree      Tree      `yaml:"tree"`
	Gesture   Gesture   `yaml:"gesture"`
	Reveal    Reveal    `yaml:"reveal"`
	Camera    Camera    `yaml:"camera"`
	Density   Density   `yaml:"density"`
	Greetings Greetings `yaml:"greetings"`
}

type Tree struct {
	Height float32 `yaml:"height"`
	Radius float32 `yaml:"radius"`
	Taper  float32 `yaml:"taper"`
}

type Gesture struct {
	MinScore      float64 `yaml:"min_score"`
	PinchRatio    float64 `yaml:"pinch_ratio"`
	MinPinch      float64 `yaml:"min_pinch"`
	PalmFallback  float64 `yaml:"palm_fallback"`
	BlockWindowMs int     `yaml:"block_window_ms"`
	Debug         bool    `yaml:"debug"`
}

func (g Gesture) BlockWindow() time.Duration {
	return time.Duration(g.BlockWindowMs) * time.Millisecond
}

type Reveal struct {
	ShowMs int `yaml:"show_ms"`
	HideMs int `yaml:"hide_ms"`
}

type Camera struct {
	RotationSpeed   float32 `yaml:"rotation_speed"`
	HandYaw         float32 `yaml:"hand_yaw"`
	HandPitch       float32 `yaml:"hand_pitch"`
	SpringFrequency float64 `yaml:"spring_frequency"`
}

// Counts is one density profile.
type Counts struct {
	Foliage   int `yaml:"foliage"`
	Ornaments int `yaml:"ornaments"`
	Elements  int `yaml:"elements"`
	Lights    int `yaml:"lights"`
}

// Max is the element-wise maximum of c and o.
func (c Counts) Max(o Counts) Counts {
	return Counts{
		Foliage:   max(c.Foliage, o.Foliage),
		Ornaments: max(c.Ornaments, o.Ornaments),
		Elements:  max(c.Elements, o.Elements),
		Lights:    max(c.Lights, o.Lights),
	}
}

type Density struct {
	Desktop Counts `yaml:"desktop"`
	Mobile  Counts `yaml:"mobile"`
	// MobileMaxWidth is the widest viewport (pixels) that still uses the mobile profile.
	MobileMaxWidth int `yaml:"mobile_max_width"`
}

// For picks the profile for a viewport width. Zero width means unknown and uses desktop.
func (d Density) For(width int) Counts {
	if width > 0 && width <= d.MobileMaxWidth {
		return d.Mobile
	}
	return d.Desktop
}

type Greetings struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
	// Envelopes caps how many of the newest greetings are eligible for reveals.
	Envelopes int `yaml:"envelopes"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 60,
		Seed:       20251224,
		Tree:       Tree{Height: 22, Radius: 9, Taper: 1},
		Gesture: Gesture{
			MinScore:      0.4,
			PinchRatio:    0.4,
			MinPinch:      0.02,
			PalmFallback:  1,
			BlockWindowMs: 700,
		},
		Reveal: Reveal{ShowMs: 3200, HideMs: 800},
		Camera: Camera{RotationSpeed: 1, HandYaw: 0.6, HandPitch: 0.25, SpringFrequency: 4},
		Density: Density{
			Desktop:        Counts{Foliage: 20000, Ornaments: 160, Elements: 180, Lights: 200},
			Mobile:         Counts{Foliage: 12000, Ornaments: 90, Elements: 110, Lights: 120},
			MobileMaxWidth: 820,
		},
		Greetings: Greetings{RefreshSeconds: 30, Envelopes: 50},
	}
}

// Load reads path over Defaults and normalizes the result. Keys missing from the file
// keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.Normalize(), nil
}

// Normalize clamps negative counts and durations to zero and replaces unusable values
// (non-positive tick rate, tree size) with defaults.
func (t Tuning) Normalize() Tuning {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.TickRateHz > 240 {
		t.TickRateHz = 240
	}
	if t.Tree.Height <= 0 {
		t.Tree.Height = d.Tree.Height
	}
	if t.Tree.Radius <= 0 {
		t.Tree.Radius = d.Tree.Radius
	}
	if t.Tree.Taper <= 0 {
		t.Tree.Taper = d.Tree.Taper
	}
	t.Gesture.BlockWindowMs = max(0, t.Gesture.BlockWindowMs)
	t.Reveal.ShowMs = max(0, t.Reveal.ShowMs)
	t.Reveal.HideMs = max(0, t.Reveal.HideMs)
	if t.Camera.SpringFrequency <= 0 {
		t.Camera.SpringFrequency = d.Camera.SpringFrequency
	}
	t.Density.Desktop = t.Density.Desktop.clamp()
	t.Density.Mobile = t.Density.Mobile.clamp()
	t.Density.MobileMaxWidth = max(0, t.Density.MobileMaxWidth)
	if t.Greetings.RefreshSeconds <= 0 {
		t.Greetings.RefreshSeconds = d.Greetings.RefreshSeconds
	}
	t.Greetings.Envelopes = max(0, t.Greetings.Envelopes)
	return t
}

func (c Counts) clamp() Counts {
	return Counts{
		Foliage:   max(0, c.Foliage),
		Ornaments: max(0, c.Ornaments),
		Elements:  max(0, c.Elements),
		Lights:    max(0, c.Lights),
	}
}
