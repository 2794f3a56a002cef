// Package scenestate holds the single CHAOS/FORMED mode of a scene.
//
// The controller is written only from the scene tick loop; readers on other goroutines
// (transports, renderers) call Mode and always see a whole value.
package scenestate

import (
	"fmt"
	"strings"
	"sync/atomic"
)

type Mode uint32

const (
	Chaos Mode = iota
	Formed
)

func (m Mode) String() string {
	switch m {
	case Chaos:
		return "CHAOS"
	case Formed:
		return "FORMED"
	default:
		return fmt.Sprintf("Mode(%d)", uint32(m))
	}
}

// Target returns 1 for Formed and 0 for Chaos, the scalar the interpolators damp toward.
func (m Mode) Target() float32 {
	if m == Formed {
		return 1
	}
	return 0
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHAOS":
		return Chaos, nil
	case "FORMED":
		return Formed, nil
	}
	return Chaos, fmt.Errorf("unknown scene mode %q", s)
}

type Controller struct {
	mode    atomic.Uint32
	changes atomic.Uint64
}

func NewController(initial Mode) *Controller {
	c := &Controller{}
	c.mode.Store(uint32(initial))
	return c
}

func (c *Controller) Mode() Mode { return Mode(c.mode.Load()) }

// Toggle flips the mode and returns the new value.
func (c *Controller) Toggle() Mode {
	next := Formed
	if c.Mode() == Formed {
		next = Chaos
	}
	c.Set(next)
	return next
}

// Set stores m. Setting the current value is a no-op and reports false.
func (c *Controller) Set(m Mode) bool {
	if m != Chaos && m != Formed {
		return false
	}
	if Mode(c.mode.Swap(uint32(m))) == m {
		return false
	}
	c.changes.Add(1)
	return true
}

// Changes counts effective transitions since creation.
func (c *Controller) Changes() uint64 { return c.changes.Load() }

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
