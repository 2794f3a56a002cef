// Package dispatch serializes reveal triggers (pinch, UI button) into show/hide
// effects with at most one reveal in flight.
package dispatch

import (
	"math/rand/v2"
	"time"

	"grandtree.dev/internal/greetings"
)

// NothingToShow is the reason passed to Effects.Nothing when no greetings exist.
const NothingToShow = "nothing to show"

type Trigger uint8

const (
	TriggerPinch Trigger = iota + 1
	TriggerButton
)

func (t Trigger) String() string {
	switch t {
	case TriggerPinch:
		return "pinch"
	case TriggerButton:
		return "random-greeting"
	default:
		return "unknown"
	}
}

type Outcome uint8

const (
	OutcomeShown Outcome = iota + 1
	OutcomeBusy
	OutcomeEmpty
)

// Anchor is a screen-space point (pixels) a reveal animates out of.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Source is the greeting collection visible at trigger time.
type Source interface {
	Len() int
	At(i int) greetings.Record
}

// Picker chooses an ornament to reveal from and projects it to the screen. ok is false
// when no ornament is available.
type Picker interface {
	PickOrnament(rng *rand.Rand) (index int, anchor Anchor, ok bool)
}

type Reveal struct {
	ID           uint64           `json:"id"`
	Trigger      Trigger          `json:"-"`
	Greeting     greetings.Record `json:"greeting"`
	Anchor       Anchor           `json:"anchor"`
	FromOrnament bool             `json:"from_ornament"`
	Ornament     int              `json:"ornament"`
}

type Effects interface {
	Show(r Reveal)
	Hide(r Reveal)
	Nothing(reason string)
}

type Config struct {
	// ShowDuration is how long a reveal stays open before it is hidden.
	ShowDuration time.Duration
	// HideDuration covers the closing animation; the dispatcher stays busy through it.
	HideDuration time.Duration
	// Center is the anchor used when no ornament can be projected.
	Center Anchor
}

func DefaultConfig() Config {
	return Config{
		ShowDuration: 3200 * time.Millisecond,
		HideDuration: 800 * time.Millisecond,
	}
}

// Dispatcher is driven from the scene loop only.
type Dispatcher struct {
	cfg     Config
	source  func() Source
	picker  Picker
	effects Effects
	rng     *rand.Rand

	busy   bool
	hidden bool
	active Reveal
	hideAt time.Time
	freeAt time.Time
	nextID uint64
}

// New builds a dispatcher. source is called on every trigger so refreshed collections are
// picked up; picker may be nil.
func New(cfg Config, source func() Source, picker Picker, effects Effects, rng *rand.Rand) *Dispatcher {
	if cfg.ShowDuration < 0 {
		cfg.ShowDuration = 0
	}
	if cfg.HideDuration < 0 {
		cfg.HideDuration = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &Dispatcher{cfg: cfg, source: source, picker: picker, effects: effects, rng: rng}
}

func (d *Dispatcher) Busy() bool { return d.busy }

// Active returns the reveal currently in flight.
func (d *Dispatcher) Active() (Reveal, bool) { return d.active, d.busy }

func (d *Dispatcher) SetCenter(a Anchor) { d.cfg.Center = a }

// Trigger asks for a random greeting. It is ignored while another reveal is in flight.
func (d *Dispatcher) Trigger(t Trigger, now time.Time) Outcome {
	if d.busy {
		return OutcomeBusy
	}
	var src Source
	if d.source != nil {
		src = d.source()
	}
	if src == nil || src.Len() == 0 {
		if d.effects != nil {
			d.effects.Nothing(NothingToShow)
		}
		return OutcomeEmpty
	}

	n := src.Len()
	d.nextID++
	r := Reveal{ID: d.nextID, Trigger: t, Ornament: -1}
	if idx, anchor, ok := d.pick(); ok {
		r.Greeting = src.At(idx % n)
		r.Anchor = anchor
		r.FromOrnament = true
		r.Ornament = idx
	} else {
		r.Greeting = src.At(d.rng.IntN(n))
		r.Anchor = d.cfg.Center
	}

	d.busy = true
	d.hidden = false
	d.active = r
	d.hideAt = now.Add(d.cfg.ShowDuration)
	d.freeAt = d.hideAt.Add(d.cfg.HideDuration)
	if d.effects != nil {
		d.effects.Show(r)
	}
	return OutcomeShown
}

func (d *Dispatcher) pick() (int, Anchor, bool) {
	if d.picker == nil {
		return 0, Anchor{}, false
	}
	idx, anchor, ok := d.picker.PickOrnament(d.rng)
	if !ok || idx < 0 {
		return 0, Anchor{}, false
	}
	return idx, anchor, true
}

// Release closes the open reveal early (the hand let go). The dispatcher stays busy
// until the closing animation has run.
func (d *Dispatcher) Release(now time.Time) {
	if !d.busy || d.hidden {
		return
	}
	d.hide()
	d.freeAt = now.Add(d.cfg.HideDuration)
}

// Tick runs the scheduled hide and release.
func (d *Dispatcher) Tick(now time.Time) {
	if !d.busy {
		return
	}
	if !d.hidden && !now.Before(d.hideAt) {
		d.hide()
	}
	if d.hidden && !now.Before(d.freeAt) {
		d.busy = false
		d.active = Reveal{}
	}
}

func (d *Dispatcher) hide() {
	d.hidden = true
	if d.effects != nil {
		d.effects.Hide(d.active)
	}
}
