package gesture

import (
	"fmt"

	"grandtree.dev/internal/sim/scenestate"
)

type EventKind uint8

const (
	EventSceneCommand EventKind = iota + 1
	EventPinchStart
	EventPinchEnd
	EventHandMove
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventSceneCommand:
		return "SCENE_COMMAND"
	case EventPinchStart:
		return "PINCH_START"
	case EventPinchEnd:
		return "PINCH_END"
	case EventHandMove:
		return "HAND_MOVE"
	case EventStatus:
		return "STATUS"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	if k < EventSceneCommand || k > EventStatus {
		return nil, fmt.Errorf("gesture: invalid event kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	for c := EventSceneCommand; c <= EventStatus; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("gesture: unknown event kind %q", b)
}

// HandPos is the wrist position in normalized image coordinates. Present is false when
// no hand is in view.
type HandPos struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Present bool    `json:"present"`
}

// Event is one of the processor's discrete outputs. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind EventKind `json:"kind"`

	Mode    scenestate.Mode `json:"mode"`
	Gesture string          `json:"gesture,omitempty"`
	Score   float64         `json:"score,omitempty"`

	Hand HandPos `json:"hand,omitempty"`

	Status   string `json:"status,omitempty"`
	Terminal bool   `json:"terminal,omitempty"`
}

func SceneCommand(mode scenestate.Mode, gesture string, score float64) Event {
	return Event{Kind: EventSceneCommand, Mode: mode, Gesture: gesture, Score: score}
}

func Status(text string) Event { return Event{Kind: EventStatus, Status: text} }

func TerminalStatus(text string) Event {
	return Event{Kind: EventStatus, Status: text, Terminal: true}
}
