package field

import "fmt"

type Kind int

const (
	KindFoliage Kind = iota
	KindOrnament
	KindElement
	KindLight
)

var Kinds = []Kind{KindFoliage, KindOrnament, KindElement, KindLight}

func (k Kind) String() string {
	switch k {
	case KindFoliage:
		return "foliage"
	case KindOrnament:
		return "ornaments"
	case KindElement:
		return "elements"
	case KindLight:
		return "lights"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Preset returns the samplers and style the scene uses for kind k on the given tree.
func Preset(k Kind, tree TreeShape) (chaos, target Sampler, style Style) {
	switch k {
	case KindFoliage:
		shape := tree
		shape.RadiusScale = 0.65
		return InSphere(25), shape.Sampler(), Style{
			Kind:       k,
			FormedRate: 1.5,
			ChaosRate:  1.5,
			Orient:     OrientNone,
			ScaleMin:   1,
		}
	case KindOrnament:
		shape := tree
		shape.Surface = true
		shape.RadiusScale = 0.82
		shape.RadiusOffset = 0.61
		return InBox(70), shape.Sampler(), Style{
			Kind:         k,
			FormedRate:   0.8,
			ChaosRate:    0.5,
			WeightScaled: true,
			WeightMin:    0.8,
			WeightMax:    2.0,
			Orient:       OrientOutward,
			SpinRange:    V3(1, 1, 1),
			TiltRange:    V3(0.3, 0.5, 0.3),
			ScaleMin:     0.8,
			ScaleMax:     1.4,
			BigChance:    0.2,
			BigScale:     2.2,
			Variants:     7,
		}
	case KindElement:
		shape := tree
		shape.Surface = true
		shape.RadiusScale = 0.95
		return InBox(60), shape.Sampler(), Style{
			Kind:       k,
			FormedRate: 1.5,
			ChaosRate:  1.5,
			Orient:     OrientSpin,
			SpinRange:  V3(2, 2, 2),
			ScaleMin:   0.6,
			ScaleMax:   1.2,
			Variants:   3,
		}
	case KindLight:
		shape := tree
		shape.Surface = true
		shape.RadiusOffset = 0.3
		return InBox(60), shape.Sampler(), Style{
			Kind:         k,
			FormedRate:   2.0,
			ChaosRate:    2.0,
			Orient:       OrientNone,
			ScaleMin:     0.15,
			GlowBase:     3,
			Glow:         4,
			GlowSpeedMin: 2,
			GlowSpeedMax: 5,
			Variants:     5,
		}
	}
	return nil, nil, Style{Kind: k}
}

// NewKind builds a field of kind k using Preset.
func NewKind(k Kind, capacity int, tree TreeShape, seed uint64) *Field {
	chaos, target, style := Preset(k, tree)
	return New(capacity, chaos, target, style, seed)
}
