// Package field animates homogeneous populations of scene entities between their
// scattered (chaos) and tree (target) positions.
package field

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"grandtree.dev/internal/sim/mathx"
	"grandtree.dev/internal/sim/scenestate"
)

type Orientation uint8

const (
	// OrientSpin keeps spinning in both modes (decorative elements).
	OrientSpin Orientation = iota
	// OrientOutward faces away from the trunk when formed and spins when scattered.
	OrientOutward
	// OrientNone leaves rotation untouched (lights, foliage).
	OrientNone
)

// Style holds the per-kind animation parameters shared by every entity of a field.
type Style struct {
	Kind Kind

	// FormedRate is the damping rate toward the tree position; it is multiplied by the
	// entity weight when WeightScaled is set. ChaosRate is used toward the chaos position.
	FormedRate   float32
	ChaosRate    float32
	WeightScaled bool
	WeightMin    float32
	WeightMax    float32

	Orient    Orientation
	SpinRange Vec3
	TiltRange Vec3

	ScaleMin  float32
	ScaleMax  float32
	BigChance float32
	BigScale  float32

	// Glow > 0 makes entities pulse between GlowBase and GlowBase+Glow while formed.
	GlowBase     float32
	Glow         float32
	GlowSpeedMin float32
	GlowSpeedMax float32

	Variants int
}

type Entity struct {
	Chaos  Vec3
	Target Vec3

	Pos Vec3
	Rot Vec3

	Weight       float32
	Spin         Vec3
	Tilt         Vec3
	WobbleOffset float32
	WobbleSpeed  float32
	Phase        float32
	GlowSpeed    float32
	Scale        float32
	Variant      int

	Glow float32
}

// Field is a fixed-capacity population. Only the first Count entities are animated and
// exposed; the rest stay cached so a later larger count reuses them unchanged.
type Field struct {
	style  Style
	seed   uint64
	chaos  Sampler
	target Sampler

	ents  []Entity
	count int
}

// New allocates capacity entities. A non-positive capacity gives an empty field.
func New(capacity int, chaos, target Sampler, style Style, seed uint64) *Field {
	f := &Field{style: style, seed: seed, chaos: chaos, target: target}
	f.generate(capacity)
	return f
}

func (f *Field) generate(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	f.ents = make([]Entity, capacity)
	salt := int(f.style.Kind) * 4
	for i := range f.ents {
		f.ents[i] = f.newEntity(i,
			mathx.Stream(f.seed, salt, i),
			mathx.Stream(f.seed, salt+1, i),
			mathx.Stream(f.seed, salt+2, i))
	}
	f.count = capacity
}

func (f *Field) newEntity(i int, rc, rt, rp *rand.Rand) Entity {
	s := f.style
	e := Entity{Weight: 1, Scale: 1}
	if f.chaos != nil {
		e.Chaos = f.chaos(rc, i)
	}
	if f.target != nil {
		e.Target = f.target(rt, i)
	}
	e.Pos = e.Chaos

	if s.WeightMax > s.WeightMin {
		e.Weight = s.WeightMin + rp.Float32()*(s.WeightMax-s.WeightMin)
	} else if s.WeightMin > 0 {
		e.Weight = s.WeightMin
	}
	e.Spin = centred(rp, s.SpinRange)
	e.Tilt = centred(rp, s.TiltRange)
	e.Rot = Vec3{rp.Float32() * math32.Pi, rp.Float32() * math32.Pi, rp.Float32() * math32.Pi}
	e.WobbleOffset = rp.Float32() * 10
	e.WobbleSpeed = 0.5 + rp.Float32()*0.5
	e.Phase = rp.Float32()
	e.GlowSpeed = s.GlowSpeedMin + rp.Float32()*(s.GlowSpeedMax-s.GlowSpeedMin)

	big := rp.Float32() < s.BigChance
	switch {
	case big && s.BigScale > 0:
		e.Scale = s.BigScale
	case s.ScaleMax > s.ScaleMin:
		e.Scale = s.ScaleMin + rp.Float32()*(s.ScaleMax-s.ScaleMin)
	case s.ScaleMin > 0:
		e.Scale = s.ScaleMin
	}
	if s.Variants > 0 {
		e.Variant = i % s.Variants
	}
	return e
}

func centred(rng *rand.Rand, span Vec3) Vec3 {
	return Vec3{
		(rng.Float32() - 0.5) * span.X,
		(rng.Float32() - 0.5) * span.Y,
		(rng.Float32() - 0.5) * span.Z,
	}
}

func (f *Field) Style() Style       { return f.style }
func (f *Field) Kind() Kind         { return f.style.Kind }
func (f *Field) Capacity() int      { return len(f.ents) }
func (f *Field) Count() int         { return f.count }
func (f *Field) Entities() []Entity { return f.ents[:f.count] }

// Entity returns a copy of entity i of the active prefix.
func (f *Field) Entity(i int) (Entity, bool) {
	if i < 0 || i >= f.count {
		return Entity{}, false
	}
	return f.ents[i], true
}

// SetCount changes how many cached entities are active, clamped to [0, Capacity].
// Entities are never resampled, so the active prefix is stable across count changes.
func (f *Field) SetCount(n int) int {
	f.count = mathx.ClampInt(n, 0, len(f.ents))
	return f.count
}

// Rate is the damping rate entity e uses while heading toward the given mode.
func (f *Field) Rate(e *Entity, mode scenestate.Mode) float32 {
	if mode != scenestate.Formed {
		return f.style.ChaosRate
	}
	if f.style.WeightScaled {
		return f.style.FormedRate * e.Weight
	}
	return f.style.FormedRate
}

// Tick advances every active entity by dt seconds toward the position selected by mode.
// t is the scene clock used by the idle animations.
func (f *Field) Tick(dt float32, mode scenestate.Mode, t float32) {
	if dt < 0 {
		dt = 0
	}
	formed := mode == scenestate.Formed
	for i := range f.ents[:f.count] {
		e := &f.ents[i]
		target := e.Chaos
		if formed {
			target = e.Target
		}
		e.Pos = Damp(e.Pos, target, f.Rate(e, mode), dt)
		f.pose(e, formed, dt, t)
	}
}

func (f *Field) pose(e *Entity, formed bool, dt, t float32) {
	switch f.style.Orient {
	case OrientSpin:
		e.Rot = e.Rot.Add(e.Spin.Scale(dt))
	case OrientOutward:
		if !formed {
			e.Rot = e.Rot.Add(e.Spin.Scale(dt))
			break
		}
		yaw := math32.Atan2(e.Pos.X, e.Pos.Z)
		pitch := -math32.Atan2(0.5, math32.Max(e.Pos.HorizLen(), 1e-3))
		wobbleX := math32.Sin(t*e.WobbleSpeed+e.WobbleOffset) * 0.05
		wobbleZ := math32.Cos(t*e.WobbleSpeed*0.8+e.WobbleOffset) * 0.05
		e.Rot = Vec3{
			X: pitch + e.Tilt.X + wobbleX,
			Y: yaw + e.Tilt.Y*0.6,
			Z: e.Tilt.Z + wobbleZ,
		}
	}

	if f.style.Glow > 0 {
		if formed {
			pulse := (math32.Sin(t*e.GlowSpeed+e.Phase*100) + 1) / 2
			e.Glow = f.style.GlowBase + f.style.Glow*pulse
		} else {
			e.Glow = 0
		}
	}
}
