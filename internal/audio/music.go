// Package audio plays the background tune toggled by clicking the star.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Note is one tone of a melody. Zero Freq is a rest.
type Note struct {
	Freq float64
	Dur  time.Duration
}

const (
	e5 = 659.25
	g5 = 783.99
	c5 = 523.25
	d5 = 587.33
	f5 = 698.46
)

const beat = 220 * time.Millisecond

// JingleBells is the chorus, looped while music is on.
var JingleBells = []Note{
	{e5, beat}, {e5, beat}, {e5, 2 * beat},
	{e5, beat}, {e5, beat}, {e5, 2 * beat},
	{e5, beat}, {g5, beat}, {c5, 1.5 * beat}, {d5, beat / 2}, {e5, 4 * beat},
	{f5, beat}, {f5, beat}, {f5, 1.5 * beat}, {f5, beat / 2},
	{f5, beat}, {e5, beat}, {e5, beat}, {e5, beat / 2}, {e5, beat / 2},
	{e5, beat}, {d5, beat}, {d5, beat}, {e5, beat}, {d5, 2 * beat}, {g5, 2 * beat},
	{0, 2 * beat},
}

// melody renders notes as a soft sine voice with a short attack and release per note.
// A looping melody starts over after its last note.
type melody struct {
	rate  beep.SampleRate
	notes []Note
	loop  bool

	idx   int
	pos   int
	len   int
	phase float64
}

func newMelody(rate beep.SampleRate, notes []Note, loop bool) *melody {
	m := &melody{rate: rate, notes: notes, loop: loop}
	if len(notes) > 0 {
		m.len = rate.N(notes[0].Dur)
	}
	return m
}

func (m *melody) next() {
	m.idx++
	m.pos = 0
	if m.idx >= len(m.notes) && m.loop {
		m.idx = 0
	}
	if m.idx < len(m.notes) {
		m.len = m.rate.N(m.notes[m.idx].Dur)
	}
}

func (m *melody) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		for guard := 0; m.idx < len(m.notes) && m.pos >= m.len; guard++ {
			if guard > len(m.notes) {
				// Every note has zero length.
				return i, i > 0
			}
			m.next()
		}
		if m.idx >= len(m.notes) {
			return i, i > 0
		}
		note := m.notes[m.idx]
		var v float64
		if note.Freq > 0 {
			v = 0.25 * envelope(m.pos, m.len, m.rate.N(10*time.Millisecond)) * math.Sin(2*math.Pi*m.phase)
			m.phase += note.Freq / float64(m.rate)
			m.phase -= math.Floor(m.phase)
		}
		samples[i][0] = v
		samples[i][1] = v
		m.pos++
	}
	return len(samples), true
}

func (m *melody) Err() error { return nil }

func envelope(pos, length, ramp int) float64 {
	if ramp <= 0 {
		return 1
	}
	switch {
	case pos < ramp:
		return float64(pos) / float64(ramp)
	case length-pos < ramp:
		return float64(length-pos) / float64(ramp)
	default:
		return 1
	}
}

// Player loops a melody through the speaker. The speaker is opened on first play.
type Player struct {
	mu      sync.Mutex
	notes   []Note
	ctrl    *beep.Ctrl
	playing bool

	open func(beep.SampleRate, beep.Streamer) error
}

func NewPlayer(notes []Note) *Player {
	if len(notes) == 0 {
		notes = JingleBells
	}
	return &Player{notes: notes, open: openSpeaker}
}

func openSpeaker(rate beep.SampleRate, s beep.Streamer) error {
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(s)
	return nil
}

// SetPlaying starts or pauses the tune. A failed device open leaves the player stopped
// and is retried on the next start.
func (p *Player) SetPlaying(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if on && p.ctrl == nil {
		ctrl := &beep.Ctrl{Streamer: newMelody(sampleRate, p.notes, true)}
		if err := p.open(sampleRate, ctrl); err != nil {
			p.playing = false
			return fmt.Errorf("open speaker: %w", err)
		}
		p.ctrl = ctrl
	}
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = !on
		speaker.Unlock()
	}
	p.playing = on && p.ctrl != nil
	return nil
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
