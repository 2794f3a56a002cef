package scene

import (
	"errors"
	"fmt"

	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/scenestate"
)

// ErrBadCommand is returned for UI messages that do not map to a Command.
var ErrBadCommand = errors.New("scene: bad command")

type CommandKind uint8

const (
	CmdToggle CommandKind = iota + 1
	CmdSetMode
	CmdRandomGreeting
	CmdRelease
	CmdResize
	CmdStarClick
)

func (k CommandKind) String() string {
	switch k {
	case CmdToggle:
		return protocol.CmdToggle
	case CmdSetMode:
		return protocol.CmdSetMode
	case CmdRandomGreeting:
		return protocol.CmdRandomGreeting
	case CmdRelease:
		return protocol.CmdRelease
	case CmdResize:
		return protocol.CmdResize
	case CmdStarClick:
		return protocol.CmdStarClick
	default:
		return fmt.Sprintf("command(%d)", uint8(k))
	}
}

// Command is a UI request applied at the start of the next tick.
type Command struct {
	Kind   CommandKind
	Mode   scenestate.Mode
	Width  int
	Height int
}

func Toggle() Command                   { return Command{Kind: CmdToggle} }
func SetMode(m scenestate.Mode) Command { return Command{Kind: CmdSetMode, Mode: m} }
func RandomGreeting() Command           { return Command{Kind: CmdRandomGreeting} }
func Release() Command                  { return Command{Kind: CmdRelease} }
func StarClick() Command                { return Command{Kind: CmdStarClick} }

func Resize(w, h int) Command {
	return Command{Kind: CmdResize, Width: w, Height: h}
}

// CommandFromUI converts a validated UI message.
func CommandFromUI(msg protocol.UIMsg) (Command, error) {
	switch msg.Command {
	case protocol.CmdToggle:
		return Toggle(), nil
	case protocol.CmdSetMode:
		m, err := scenestate.ParseMode(msg.Mode)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %w", ErrBadCommand, err)
		}
		return SetMode(m), nil
	case protocol.CmdRandomGreeting:
		return RandomGreeting(), nil
	case protocol.CmdRelease:
		return Release(), nil
	case protocol.CmdResize:
		if msg.Width < 0 || msg.Height < 0 {
			return Command{}, fmt.Errorf("%w: negative viewport %dx%d", ErrBadCommand, msg.Width, msg.Height)
		}
		return Resize(msg.Width, msg.Height), nil
	case protocol.CmdStarClick:
		return StarClick(), nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrBadCommand, msg.Command)
	}
}
