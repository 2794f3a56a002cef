package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session routing.
	ErrTrackerBusy = "E_TRACKER_BUSY"
	ErrWrongRole   = "E_WRONG_ROLE"

	// Scene layer.
	ErrBadCommand = "E_BAD_COMMAND"
	ErrSceneBusy  = "E_SCENE_BUSY"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrTrackerBusy:     {},
	ErrWrongRole:       {},
	ErrBadCommand:      {},
	ErrSceneBusy:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
