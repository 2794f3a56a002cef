package scene

import (
	"grandtree.dev/internal/sim/dispatch"
	"grandtree.dev/internal/sim/field"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scenestate"
)

// View is the per-tick draw input. Slices alias scene memory and are only valid for the
// duration of Draw.
type View struct {
	Tick   uint64
	Time   float32
	Mode   scenestate.Mode
	Fields []FieldView
	Star   field.Star
	Hand   gesture.HandPos

	CameraYaw   float32
	CameraPitch float32
	// Project maps a tree-space position to viewport pixels.
	Project func(p field.Vec3, width, height float64) (x, y float64, ok bool)

	Reveal   *dispatch.Reveal
	Revealed bool
	Status   string
	Music    bool
	Width    int
	Height   int
}

type FieldView struct {
	Kind     field.Kind
	Entities []field.Entity
}

// Renderer is called from the scene loop once per tick.
type Renderer interface {
	Draw(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Draw(v View) { f(v) }
