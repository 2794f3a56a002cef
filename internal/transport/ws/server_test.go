package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/tracking"
)

type fakeScene struct {
	join  chan scene.JoinRequest
	leave chan string

	mu   sync.Mutex
	cmds []scene.Command
	full bool
}

func newFakeScene() *fakeScene {
	fs := &fakeScene{join: make(chan scene.JoinRequest), leave: make(chan string, 8)}
	go func() {
		for req := range fs.join {
			req.Resp <- protocol.WelcomeMsg{
				Type:            protocol.TypeWelcome,
				ProtocolVersion: protocol.Version,
				SessionID:       req.SessionID,
				Role:            protocol.RoleViewer,
				Mode:            "CHAOS",
			}
		}
	}()
	return fs
}

func (f *fakeScene) Join() chan<- scene.JoinRequest { return f.join }
func (f *fakeScene) Leave() chan<- string           { return f.leave }

func (f *fakeScene) Submit(cmd scene.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.cmds = append(f.cmds, cmd)
	return true
}

func (f *fakeScene) commands() []scene.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scene.Command(nil), f.cmds...)
}

func startServer(t *testing.T, sc Scene, tracker *tracking.Remote) string {
	t.Helper()
	v, err := protocol.NewValidator()
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(sc, tracker, v, nil).Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func hello(role string) map[string]any {
	return map[string]any{"type": protocol.TypeHello, "protocol_version": protocol.Version, "role": role}
}

func readMsg(t *testing.T, conn *websocket.Conn) (protocol.BaseMessage, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	base, err := protocol.DecodeBase(b)
	require.NoError(t, err)
	return base, b
}

func readError(t *testing.T, conn *websocket.Conn) protocol.ErrorMsg {
	t.Helper()
	base, b := readMsg(t, conn)
	require.Equal(t, protocol.TypeError, base.Type, string(b))
	var e protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestViewerHandshakeAndCommands(t *testing.T) {
	fs := newFakeScene()
	conn := dial(t, startServer(t, fs, nil))

	require.NoError(t, conn.WriteJSON(hello(protocol.RoleViewer)))
	base, b := readMsg(t, conn)
	require.Equal(t, protocol.TypeWelcome, base.Type)
	var w protocol.WelcomeMsg
	require.NoError(t, json.Unmarshal(b, &w))
	assert.NotEmpty(t, w.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": protocol.TypeUI, "protocol_version": protocol.Version, "command": protocol.CmdToggle,
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": protocol.TypeUI, "protocol_version": protocol.Version,
		"command": protocol.CmdResize, "width": 390, "height": 844,
	}))
	require.Eventually(t, func() bool { return len(fs.commands()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []scene.Command{scene.Toggle(), scene.Resize(390, 844)}, fs.commands())
}

func TestViewerInvalidUIGetsError(t *testing.T) {
	conn := dial(t, startServer(t, newFakeScene(), nil))
	require.NoError(t, conn.WriteJSON(hello(protocol.RoleViewer)))
	readMsg(t, conn)

	// SET_MODE without a mode fails the schema.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": protocol.TypeUI, "protocol_version": protocol.Version, "command": protocol.CmdSetMode,
	}))
	assert.Equal(t, protocol.ErrProtoBadRequest, readError(t, conn).Code)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": protocol.TypeHand, "protocol_version": protocol.Version, "ts": 1, "frame": map[string]any{},
	}))
	assert.Equal(t, protocol.ErrWrongRole, readError(t, conn).Code)
}

func TestViewerInboxFull(t *testing.T) {
	fs := newFakeScene()
	fs.full = true
	conn := dial(t, startServer(t, fs, nil))
	require.NoError(t, conn.WriteJSON(hello(protocol.RoleViewer)))
	readMsg(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": protocol.TypeUI, "protocol_version": protocol.Version, "command": protocol.CmdRandomGreeting,
	}))
	assert.Equal(t, protocol.ErrSceneBusy, readError(t, conn).Code)
}

func TestHelloVersionMismatch(t *testing.T) {
	conn := dial(t, startServer(t, newFakeScene(), nil))
	msg := hello(protocol.RoleViewer)
	msg["protocol_version"] = "0.1"
	require.NoError(t, conn.WriteJSON(msg))
	assert.Equal(t, protocol.ErrProtoVersion, readError(t, conn).Code)
}

func TestSecondTrackerIsBusy(t *testing.T) {
	remote := tracking.NewRemote()
	url := startServer(t, newFakeScene(), remote)

	first := dial(t, url)
	require.NoError(t, first.WriteJSON(hello(protocol.RoleTracker)))
	base, _ := readMsg(t, first)
	require.Equal(t, protocol.TypeWelcome, base.Type)

	second := dial(t, url)
	require.NoError(t, second.WriteJSON(hello(protocol.RoleTracker)))
	assert.Equal(t, protocol.ErrTrackerBusy, readError(t, second).Code)
}

func TestTrackerFeedsRemote(t *testing.T) {
	remote := tracking.NewRemote()
	conn := dial(t, startServer(t, newFakeScene(), remote))
	require.NoError(t, conn.WriteJSON(hello(protocol.RoleTracker)))
	readMsg(t, conn)

	require.NoError(t, conn.WriteJSON(protocol.HandMsg{
		Type:            protocol.TypeHand,
		ProtocolVersion: protocol.Version,
		TS:              33,
		Frame: gesture.Frame{
			Landmarks: [][]gesture.Landmark{{{X: 0.25, Y: 0.75}}},
		},
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := remote.Recognize(ctx, 0)
	require.NoError(t, err)
	require.Len(t, f.Landmarks, 1)
	assert.Equal(t, 0.25, f.Landmarks[0][0].X)

	require.NoError(t, conn.WriteJSON(protocol.TrackerStatusMsg{
		Type:            protocol.TypeTrackerStatus,
		ProtocolVersion: protocol.Version,
		Status:          "CAMERA ERROR: PERMISSION DENIED",
		Fatal:           true,
	}))
	_, err = remote.Recognize(ctx, 0)
	assert.ErrorIs(t, err, tracking.ErrSetup)
}

func TestTrackerRefusedWhenDisabled(t *testing.T) {
	conn := dial(t, startServer(t, newFakeScene(), nil))
	require.NoError(t, conn.WriteJSON(hello(protocol.RoleTracker)))
	assert.Equal(t, protocol.ErrWrongRole, readError(t, conn).Code)
}

func TestViewerLeaveDoesNotHangOnStoppedScene(t *testing.T) {
	fs := newFakeScene()
	fs.leave = make(chan string) // nobody reads it

	v, err := protocol.NewValidator()
	require.NoError(t, err)
	srv := NewServer(fs, nil, v, nil)
	srv.JoinTimeout = 50 * time.Millisecond
	done := make(chan struct{})
	h := srv.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer close(done)
		h(rw, r)
	}))
	t.Cleanup(ts.Close)

	conn := dial(t, "ws"+strings.TrimPrefix(ts.URL, "http"))
	require.NoError(t, conn.WriteJSON(hello(protocol.RoleViewer)))
	base, _ := readMsg(t, conn)
	require.Equal(t, protocol.TypeWelcome, base.Type)
	require.NoError(t, conn.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer handler still blocked on leave")
	}
}
