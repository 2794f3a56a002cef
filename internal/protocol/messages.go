package protocol

import "grandtree.dev/internal/sim/gesture"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Role            string    `json:"role"`
	Name            string    `json:"name,omitempty"`
	Viewport        *Viewport `json:"viewport,omitempty"`
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	Role            string   `json:"role"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Mode            string   `json:"mode"`
	Features        Features `json:"features"`
}

type Features struct {
	GestureControl      bool `json:"gesture_control"`
	CommentReply        bool `json:"comment_reply"`
	ShowOthersBlessings bool `json:"show_others_blessings"`
	ShowDebugButton     bool `json:"show_debug_button"`
}

// HAND (tracker -> server): one recognizer result.
type HandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// TS is the video timestamp in milliseconds.
	TS    int64         `json:"ts"`
	Frame gesture.Frame `json:"frame"`
}

// TRACKER_STATUS (tracker -> server): setup progress or failure.
type TrackerStatusMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Status          string `json:"status"`
	Fatal           bool   `json:"fatal,omitempty"`
}

// UI commands.
const (
	CmdToggle         = "TOGGLE"
	CmdSetMode        = "SET_MODE"
	CmdRandomGreeting = "RANDOM_GREETING"
	CmdRelease        = "RELEASE"
	CmdResize         = "RESIZE"
	CmdStarClick      = "STAR_CLICK"
)

// UI (viewer -> server)
type UIMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Command         string `json:"command"`
	Mode            string `json:"mode,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// STATE (server -> viewer), sent at a reduced rate.
type StateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	Mode            string          `json:"mode"`
	Hand            gesture.HandPos `json:"hand"`
	Busy            bool            `json:"busy"`
	Music           bool            `json:"music"`
	StarScale       float32         `json:"star_scale"`
	CameraYaw       float32         `json:"camera_yaw"`
	Counts          Counts          `json:"counts"`
	Greetings       int             `json:"greetings"`
	Status          string          `json:"status,omitempty"`
}

type Counts struct {
	Foliage   int `json:"foliage"`
	Ornaments int `json:"ornaments"`
	Elements  int `json:"elements"`
	Lights    int `json:"lights"`
}

// Event kinds.
const (
	EventRevealShow = "REVEAL_SHOW"
	EventRevealHide = "REVEAL_HIDE"
	EventNothing    = "NOTHING"
	EventStatus     = "STATUS"
	EventMusic      = "MUSIC"
	EventMode       = "MODE"
)

// EVENT (server -> viewer)
type EventMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Kind            string         `json:"kind"`
	Reveal          *RevealPayload `json:"reveal,omitempty"`
	Mode            string         `json:"mode,omitempty"`
	Status          string         `json:"status,omitempty"`
	Terminal        bool           `json:"terminal,omitempty"`
	Music           bool           `json:"music,omitempty"`
}

type RevealPayload struct {
	ID           uint64  `json:"id"`
	GreetingID   string  `json:"greeting_id"`
	Nick         string  `json:"nick"`
	Comment      string  `json:"comment"`
	Text         string  `json:"text"`
	Avatar       string  `json:"avatar,omitempty"`
	Mail         string  `json:"mail,omitempty"`
	InsertedAt   string  `json:"inserted_at,omitempty"`
	FromOrnament bool    `json:"from_ornament"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
