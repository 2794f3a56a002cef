package field

import "grandtree.dev/internal/sim/scenestate"

// Star is the tree topper. It grows in when the tree forms and shrinks away otherwise.
type Star struct {
	Pos   Vec3
	Scale float32
	Yaw   float32
}

func NewStar(tree TreeShape) Star {
	return Star{Pos: V3(0, tree.Height/2+1.8, 0)}
}

func (s *Star) Tick(dt float32, mode scenestate.Mode) {
	if dt < 0 {
		dt = 0
	}
	s.Yaw += dt * 0.5
	s.Scale = DampScalar(s.Scale, mode.Target(), 3, dt)
}
