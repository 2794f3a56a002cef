package field

import "github.com/chewxy/math32"

type Vec3 struct {
	X, Y, Z float32
}

func V3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Len() float32         { return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) Dist(o Vec3) float32  { return v.Sub(o).Len() }
func (v Vec3) HorizLen() float32    { return math32.Hypot(v.X, v.Z) }
func (v Vec3) Dot(o Vec3) float32   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{v.Y*o.Z - v.Z*o.Y, v.Z*o.X - v.X*o.Z, v.X*o.Y - v.Y*o.X}
}

// Norm returns v scaled to unit length, or the zero vector.
func (v Vec3) Norm() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t, v.Z + (o.Z-v.Z)*t}
}

// DampFactor is the lerp fraction that moves a value toward its target at rate lambda
// over dt seconds, independent of how dt is sliced. It is always in [0, 1).
func DampFactor(lambda, dt float32) float32 {
	if lambda <= 0 || dt <= 0 {
		return 0
	}
	return 1 - math32.Exp(-lambda*dt)
}

// Damp moves a toward b by DampFactor(lambda, dt). The result lies on the segment [a, b].
func Damp(a, b Vec3, lambda, dt float32) Vec3 {
	return a.Lerp(b, DampFactor(lambda, dt))
}

// DampScalar is the scalar form of Damp.
func DampScalar(a, b, lambda, dt float32) float32 {
	return a + (b-a)*DampFactor(lambda, dt)
}
