package main

import (
	"fmt"
	"time"

	persistlog "grandtree.dev/internal/persistence/log"
	"grandtree.dev/internal/sim/gesture"
)

// epoch anchors recorded offsets; only differences between frames matter.
var epoch = time.Unix(0, 0).UTC()

type report struct {
	Frames  int
	Checked int
	Kinds   map[string]int
}

// verify feeds recorded frames through a fresh processor and requires it to emit the
// recorded events again. Records before fromTick still run, to rebuild pinch and block
// state, but are not compared; toTick of zero means no upper bound.
func verify(cfg gesture.Config, recs []persistlog.TickRecord, fromTick, toTick uint64) (report, error) {
	proc := gesture.NewProcessor(cfg)
	rep := report{Kinds: map[string]int{}}
	var lastTick uint64
	for i, rec := range recs {
		if toTick != 0 && rec.Tick > toTick {
			break
		}
		if i > 0 && rec.Tick < lastTick {
			return rep, fmt.Errorf("tick went backwards: %d after %d", rec.Tick, lastTick)
		}
		lastTick = rec.Tick
		rep.Frames++

		got := proc.Process(rec.Frame, epoch.Add(time.Duration(rec.AtMS)*time.Millisecond))
		for _, ev := range got {
			rep.Kinds[ev.Kind.String()]++
		}
		if rec.Tick < fromTick {
			continue
		}
		rep.Checked++
		if err := sameEvents(got, rec.Events); err != nil {
			return rep, fmt.Errorf("tick %d: %w", rec.Tick, err)
		}
	}
	return rep, nil
}

func sameEvents(got, want []gesture.Event) error {
	if len(got) != len(want) {
		return fmt.Errorf("event count mismatch: got=%d want=%d (%s vs %s)", len(got), len(want), kindList(got), kindList(want))
	}
	for i := range got {
		g, w := got[i], want[i]
		if g.Kind != w.Kind || g.Mode != w.Mode || g.Gesture != w.Gesture ||
			g.Hand.Present != w.Hand.Present || g.Status != w.Status || g.Terminal != w.Terminal {
			return fmt.Errorf("event %d mismatch: got=%s want=%s", i, describe(g), describe(w))
		}
	}
	return nil
}

func kindList(evs []gesture.Event) string {
	s := "["
	for i, ev := range evs {
		if i > 0 {
			s += " "
		}
		s += ev.Kind.String()
	}
	return s + "]"
}

func describe(ev gesture.Event) string {
	switch ev.Kind {
	case gesture.EventSceneCommand:
		return fmt.Sprintf("%s(%s %s)", ev.Kind, ev.Gesture, ev.Mode)
	case gesture.EventHandMove:
		return fmt.Sprintf("%s(present=%t)", ev.Kind, ev.Hand.Present)
	case gesture.EventStatus:
		return fmt.Sprintf("%s(%q)", ev.Kind, ev.Status)
	default:
		return ev.Kind.String()
	}
}
