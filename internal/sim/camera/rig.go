// Package camera orbits a perspective camera around the tree and projects scene
// positions to viewport pixels.
package camera

import (
	"github.com/charmbracelet/harmonica"
	"github.com/chewxy/math32"

	"grandtree.dev/internal/sim/field"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scenestate"
)

type Config struct {
	Eye    field.Vec3
	Target field.Vec3
	// Offset is where the tree group sits in world space.
	Offset field.Vec3
	FovY   float32 // degrees
	Near   float32

	// AutoRotate is the orbit speed in rad/s while FORMED, scaled by RotationScale.
	AutoRotate    float32
	RotationScale float32
	// MaxPolar is the largest polar angle (from straight up) the eye may reach.
	MaxPolar float32

	// HandYaw and HandPitch are the orbit offsets (radians) at full hand deflection.
	HandYaw         float32
	HandPitch       float32
	SpringFrequency float64
}

func DefaultConfig() Config {
	return Config{
		Eye:             field.V3(0, 8, 60),
		Offset:          field.V3(0, 8, 0),
		FovY:            45,
		Near:            0.1,
		AutoRotate:      -0.6 * 2 * math32.Pi / 60,
		RotationScale:   1,
		MaxPolar:        math32.Pi / 1.7,
		HandYaw:         0.6,
		HandPitch:       0.25,
		SpringFrequency: 4,
	}
}

// Rig is owned by the scene loop.
type Rig struct {
	cfg    Config
	spring harmonica.Spring
	stepDt float32

	dist      float32
	baseYaw   float32
	basePitch float32

	orbit    float32
	yaw      float64
	yawVel   float64
	pitch    float64
	pitchVel float64
	hand     gesture.HandPos
}

func New(cfg Config) *Rig {
	if cfg.FovY <= 0 || cfg.FovY >= 180 {
		cfg.FovY = 45
	}
	if cfg.Near <= 0 {
		cfg.Near = 0.1
	}
	if cfg.SpringFrequency <= 0 {
		cfg.SpringFrequency = 4
	}
	if cfg.MaxPolar <= 0 {
		cfg.MaxPolar = math32.Pi
	}
	rel := cfg.Eye.Sub(cfg.Target)
	r := &Rig{cfg: cfg, dist: rel.Len()}
	if r.dist > 0 {
		r.baseYaw = math32.Atan2(rel.X, rel.Z)
		r.basePitch = math32.Asin(rel.Y / r.dist)
	}
	return r
}

func (r *Rig) Config() Config { return r.cfg }

// SetRotationScale changes the auto-rotate multiplier.
func (r *Rig) SetRotationScale(s float32) { r.cfg.RotationScale = s }

// SetHand records the latest hand position; an absent hand lets the orbit settle back.
func (r *Rig) SetHand(h gesture.HandPos) { r.hand = h }

func (r *Rig) Tick(dt float32, mode scenestate.Mode) {
	if dt <= 0 {
		return
	}
	if mode == scenestate.Formed {
		r.orbit += r.cfg.AutoRotate * r.cfg.RotationScale * dt
	}
	if dt != r.stepDt {
		r.spring = harmonica.NewSpring(float64(dt), r.cfg.SpringFrequency, 1)
		r.stepDt = dt
	}
	var wantYaw, wantPitch float64
	if r.hand.Present {
		wantYaw = (r.hand.X - 0.5) * 2 * float64(r.cfg.HandYaw)
		wantPitch = (r.hand.Y - 0.5) * 2 * float64(r.cfg.HandPitch)
	}
	r.yaw, r.yawVel = r.spring.Update(r.yaw, r.yawVel, wantYaw)
	r.pitch, r.pitchVel = r.spring.Update(r.pitch, r.pitchVel, wantPitch)
}

// Yaw is the total orbit angle about the vertical axis.
func (r *Rig) Yaw() float32 { return r.baseYaw + r.orbit + float32(r.yaw) }

// Pitch is the elevation above the target, clamped to the polar limit.
func (r *Rig) Pitch() float32 {
	p := r.basePitch + float32(r.pitch)
	lo := math32.Pi/2 - r.cfg.MaxPolar
	return clamp32(p, lo, math32.Pi/2-0.01)
}

func (r *Rig) Eye() field.Vec3 {
	yaw, pitch := r.Yaw(), r.Pitch()
	cp := math32.Cos(pitch)
	return r.cfg.Target.Add(field.V3(cp*math32.Sin(yaw), math32.Sin(pitch), cp*math32.Cos(yaw)).Scale(r.dist))
}

// Project maps a position in tree space to viewport pixels (origin top-left). ok is false
// for points behind the near plane or an empty viewport.
func (r *Rig) Project(p field.Vec3, width, height float64) (x, y float64, ok bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	eye := r.Eye()
	fwd := r.cfg.Target.Sub(eye).Norm()
	right := fwd.Cross(field.V3(0, 1, 0)).Norm()
	up := right.Cross(fwd)

	d := p.Add(r.cfg.Offset).Sub(eye)
	depth := d.Dot(fwd)
	if depth <= r.cfg.Near {
		return 0, 0, false
	}
	f := math32.Tan(r.cfg.FovY * math32.Pi / 360)
	aspect := float32(width / height)
	nx := d.Dot(right) / (depth * f * aspect)
	ny := d.Dot(up) / (depth * f)
	return (float64(nx)*0.5 + 0.5) * width, (-float64(ny)*0.5 + 0.5) * height, true
}

func clamp32(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
