// Package term draws the scene onto a terminal with tcell.
package term

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"grandtree.dev/internal/sim/field"
	"grandtree.dev/internal/sim/mathx"
	"grandtree.dev/internal/sim/scene"
)

// CellAspect is how many viewport pixels tall one cell is per pixel of width. The scene
// works in square pixels; terminal cells are roughly twice as tall as wide.
const CellAspect = 2

var (
	styleFoliage  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleOrnament = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleElement  = tcell.StyleDefault.Foreground(tcell.ColorGold)
	styleLightDim = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleLight    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStar     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleCard     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
)

var kindGlyph = map[field.Kind]rune{
	field.KindFoliage:  '.',
	field.KindOrnament: 'o',
	field.KindElement:  '*',
	field.KindLight:    '+',
}

// Renderer implements scene.Renderer. Draw must be called from one goroutine.
type Renderer struct {
	screen tcell.Screen
	frames uint64
}

func New(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

func (r *Renderer) Frames() uint64 { return r.frames }

// Viewport is the scene viewport matching the terminal, in pixels.
func (r *Renderer) Viewport() (width, height int) {
	w, h := r.screen.Size()
	return w, h * CellAspect
}

func (r *Renderer) Draw(v scene.View) {
	r.frames++
	s := r.screen
	s.Clear()
	cols, rows := s.Size()
	if cols <= 0 || rows <= 0 {
		s.Show()
		return
	}
	pw, ph := float64(cols), float64(rows*CellAspect)

	// Foliage first so brighter kinds overwrite it.
	for _, fv := range v.Fields {
		glyph := kindGlyph[fv.Kind]
		for i := range fv.Entities {
			e := &fv.Entities[i]
			x, y, ok := project(v, e.Pos, pw, ph)
			if !ok {
				continue
			}
			s.SetContent(x, y, glyph, nil, entityStyle(fv.Kind, e))
		}
	}

	if v.Star.Scale > 0.1 {
		if x, y, ok := project(v, v.Star.Pos, pw, ph); ok {
			s.SetContent(x, y, '★', nil, styleStar)
		}
	}

	if v.Reveal != nil && v.Revealed {
		r.card(v, cols, rows)
	}

	hud := fmt.Sprintf(" %s  tick %d", v.Mode, v.Tick)
	if v.Music {
		hud += "  ♪"
	}
	drawText(s, 0, 0, cols, hud, styleHUD)
	if v.Status != "" {
		drawText(s, 0, rows-1, cols, " "+v.Status, styleHUD)
	}
	if v.Hand.Present {
		hx := int(v.Hand.X * float64(cols-1))
		hy := int(v.Hand.Y * float64(rows-1))
		s.SetContent(hx, hy, '@', nil, styleHUD)
	}
	s.Show()
}

// card draws the greeting box centred on the reveal anchor.
func (r *Renderer) card(v scene.View, cols, rows int) {
	g := v.Reveal.Greeting
	lines := []string{g.Nick, g.PlainText()}
	width := 0
	for _, l := range lines {
		width = max(width, len([]rune(l)))
	}
	width = min(width+2, max(cols-2, 1))
	height := len(lines) + 2

	cx := int(v.Reveal.Anchor.X)
	cy := int(v.Reveal.Anchor.Y) / CellAspect
	if v.Width > 0 && v.Height > 0 {
		cx = int(v.Reveal.Anchor.X / float64(v.Width) * float64(cols))
		cy = int(v.Reveal.Anchor.Y / float64(v.Height) * float64(rows))
	}
	x0 := mathx.ClampInt(cx-width/2, 0, max(cols-width, 0))
	y0 := mathx.ClampInt(cy-height/2, 0, max(rows-height, 0))

	for y := y0; y < y0+height && y < rows; y++ {
		for x := x0; x < x0+width && x < cols; x++ {
			r.screen.SetContent(x, y, ' ', nil, styleCard)
		}
	}
	for i, l := range lines {
		drawText(r.screen, x0+1, y0+1+i, width-2, l, styleCard)
	}
}

func project(v scene.View, p field.Vec3, pw, ph float64) (int, int, bool) {
	if v.Project == nil {
		return 0, 0, false
	}
	x, y, ok := v.Project(p, pw, ph)
	if !ok || math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	col, row := int(x), int(y)/CellAspect
	if x < 0 || y < 0 || col >= int(pw) || row >= int(ph)/CellAspect {
		return 0, 0, false
	}
	return col, row, true
}

func entityStyle(k field.Kind, e *field.Entity) tcell.Style {
	switch k {
	case field.KindOrnament:
		return styleOrnament
	case field.KindElement:
		return styleElement
	case field.KindLight:
		if e.Glow > 3 {
			return styleLight
		}
		return styleLightDim
	default:
		return styleFoliage
	}
}

func drawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	i := 0
	for _, r := range text {
		if i >= maxWidth {
			return
		}
		s.SetContent(x+i, y, r, nil, style)
		i++
	}
}
