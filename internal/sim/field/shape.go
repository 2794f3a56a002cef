package field

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// Sampler returns the position of entity i. rng is the entity's own stream, so the
// result depends only on the seed and i.
type Sampler func(rng *rand.Rand, i int) Vec3

// TreeShape is the procedural cone the FORMED state assembles into.
//
// Height bands are sampled uniformly; the radius bound at normalized height u is
// Radius·(1-u)^Taper. Volume samples pick r uniformly in [0, bound·RadiusScale];
// Surface samples sit at bound·RadiusScale+RadiusOffset.
type TreeShape struct {
	Height       float32
	Radius       float32
	Taper        float32
	RadiusScale  float32
	RadiusOffset float32
	Surface      bool
}

func DefaultTree() TreeShape {
	return TreeShape{Height: 22, Radius: 9, Taper: 1, RadiusScale: 1}
}

// Bound returns the radius bound at height y.
func (s TreeShape) Bound(y float32) float32 {
	if s.Height <= 0 {
		return 0
	}
	u := (y + s.Height/2) / s.Height
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	taper := s.Taper
	if taper <= 0 {
		taper = 1
	}
	return s.Radius * math32.Pow(1-u, taper)
}

func (s TreeShape) Sample(rng *rand.Rand) Vec3 {
	y := rng.Float32()*s.Height - s.Height/2
	scale := s.RadiusScale
	if scale <= 0 {
		scale = 1
	}
	bound := s.Bound(y) * scale
	var r float32
	if s.Surface {
		r = bound + s.RadiusOffset
	} else {
		r = rng.Float32() * bound
	}
	theta := rng.Float32() * 2 * math32.Pi
	return Vec3{X: r * math32.Cos(theta), Y: y, Z: r * math32.Sin(theta)}
}

func (s TreeShape) Sampler() Sampler {
	return func(rng *rand.Rand, _ int) Vec3 { return s.Sample(rng) }
}

// InSphere samples uniformly inside a ball of the given radius.
func InSphere(radius float32) Sampler {
	return func(rng *rand.Rand, _ int) Vec3 {
		var d Vec3
		for {
			d = Vec3{float32(rng.NormFloat64()), float32(rng.NormFloat64()), float32(rng.NormFloat64())}
			if l := d.Len(); l > 1e-6 {
				d = d.Scale(1 / l)
				break
			}
		}
		return d.Scale(radius * math32.Pow(rng.Float32(), 1.0/3))
	}
}

// InBox samples uniformly inside an axis-aligned cube of edge size centred on the origin.
func InBox(size float32) Sampler {
	return func(rng *rand.Rand, _ int) Vec3 {
		return Vec3{
			(rng.Float32() - 0.5) * size,
			(rng.Float32() - 0.5) * size,
			(rng.Float32() - 0.5) * size,
		}
	}
}
