package scene

import (
	"math/rand/v2"

	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/persistence/indexdb"
	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/dispatch"
	"grandtree.dev/internal/sim/field"
)

// newest exposes the first n records of a collection, which the greeting service
// returns newest first.
type newest struct {
	c *greetings.Collection
	n int
}

func (l newest) Len() int                  { return min(l.c.Len(), l.n) }
func (l newest) At(i int) greetings.Record { return l.c.At(i) }

func (s *Scene) greetingSource() dispatch.Source {
	if s.store == nil || !s.cfg.Features.ShowOthersBlessings {
		return nil
	}
	return newest{c: s.store.Current(), n: s.cfg.Envelopes}
}

func (s *Scene) greetingCount() int {
	src := s.greetingSource()
	if src == nil {
		return 0
	}
	return src.Len()
}

type ornamentPicker struct{ s *Scene }

// PickOrnament chooses a live ornament and projects it into the current viewport.
func (p ornamentPicker) PickOrnament(rng *rand.Rand) (int, dispatch.Anchor, bool) {
	f := p.s.fields[field.KindOrnament]
	n := f.Count()
	if n == 0 {
		return 0, dispatch.Anchor{}, false
	}
	i := rng.IntN(n)
	e, _ := f.Entity(i)
	x, y, ok := p.s.rig.Project(e.Pos, float64(p.s.width), float64(p.s.height))
	if !ok {
		return 0, dispatch.Anchor{}, false
	}
	return i, dispatch.Anchor{X: x, Y: y}, true
}

type sceneEffects struct{ s *Scene }

func (e sceneEffects) Show(r dispatch.Reveal) {
	s := e.s
	s.revealed = true
	g := r.Greeting.Public(s.cfg.ShowSenderEmail)
	s.queue(protocol.EventMsg{
		Kind: protocol.EventRevealShow,
		Reveal: &protocol.RevealPayload{
			ID:           r.ID,
			GreetingID:   g.ID,
			Nick:         g.Nick,
			Comment:      g.Comment,
			Text:         g.PlainText(),
			Avatar:       g.Avatar,
			Mail:         g.Mail,
			InsertedAt:   g.InsertedAt,
			FromOrnament: r.FromOrnament,
			X:            r.Anchor.X,
			Y:            r.Anchor.Y,
		},
	})
	if s.audit != nil {
		s.audit.WriteReveal(indexdb.RevealRow{
			Session:      s.sessionID,
			RevealID:     r.ID,
			GreetingID:   g.ID,
			Nick:         g.Nick,
			Trigger:      r.Trigger.String(),
			FromOrnament: r.FromOrnament,
			ShownAt:      s.now,
		})
	}
}

func (e sceneEffects) Hide(r dispatch.Reveal) {
	e.s.revealed = false
	e.s.queue(protocol.EventMsg{
		Kind:   protocol.EventRevealHide,
		Reveal: &protocol.RevealPayload{ID: r.ID, GreetingID: r.Greeting.ID},
	})
}

func (e sceneEffects) Nothing(reason string) {
	e.s.queue(protocol.EventMsg{Kind: protocol.EventNothing, Status: reason})
}
