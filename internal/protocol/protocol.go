package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello         = "HELLO"
	TypeWelcome       = "WELCOME"
	TypeHand          = "HAND"
	TypeTrackerStatus = "TRACKER_STATUS"
	TypeUI            = "UI"
	TypeState         = "STATE"
	TypeEvent         = "EVENT"
	TypeError         = "ERROR"
)

// Client roles announced in HELLO.
const (
	RoleTracker = "tracker"
	RoleViewer  = "viewer"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
