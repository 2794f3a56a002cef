package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/tracking"
)

// Scene is the part of the scene loop the transport talks to.
type Scene interface {
	Join() chan<- scene.JoinRequest
	Leave() chan<- string
	Submit(cmd scene.Command) bool
}

type Server struct {
	scene     Scene
	tracker   *tracking.Remote
	validator *protocol.Validator
	log       *log.Logger

	upgrader websocket.Upgrader
	// JoinTimeout bounds how long a viewer waits for the scene loop to accept it.
	JoinTimeout time.Duration
}

// NewServer serves viewers of sc. tracker may be nil, in which case tracker connections
// are refused.
func NewServer(sc Scene, tracker *tracking.Remote, v *protocol.Validator, logger *log.Logger) *Server {
	return &Server{
		scene:     sc,
		tracker:   tracker,
		validator: v,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		JoinTimeout: 5 * time.Second,
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.readHello(conn)
		if !ok {
			return
		}
		switch hello.Role {
		case protocol.RoleViewer:
			s.serveViewer(r.Context(), conn, hello)
		case protocol.RoleTracker:
			s.serveTracker(conn)
		}
	}
}

func (s *Server) readHello(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return protocol.HelloMsg{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return protocol.HelloMsg{}, false
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return protocol.HelloMsg{}, false
	}
	if err := s.validate(base.Type, msg); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, err.Error())
		return protocol.HelloMsg{}, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, "bad HELLO")
		return protocol.HelloMsg{}, false
	}
	if hello.Name == "" {
		hello.Name = hello.Role
	}
	return hello, true
}

func (s *Server) serveViewer(reqCtx context.Context, conn *websocket.Conn, hello protocol.HelloMsg) {
	id := uuid.NewString()
	out := make(chan []byte, 32)
	resp := make(chan protocol.WelcomeMsg, 1)
	req := scene.JoinRequest{SessionID: id, Name: hello.Name, Out: out, Resp: resp}
	if hello.Viewport != nil {
		req.Width, req.Height = hello.Viewport.Width, hello.Viewport.Height
	}

	timeout := time.NewTimer(s.JoinTimeout)
	defer timeout.Stop()
	select {
	case s.scene.Join() <- req:
	case <-timeout.C:
		s.reject(conn, protocol.ErrSceneBusy, "scene not accepting viewers")
		return
	case <-reqCtx.Done():
		return
	}
	var welcome protocol.WelcomeMsg
	select {
	case welcome = <-resp:
	case <-timeout.C:
		s.leave(id)
		s.reject(conn, protocol.ErrSceneBusy, "scene not accepting viewers")
		return
	}
	defer s.leave(id)

	if err := writeJSON(conn, welcome); err != nil {
		return
	}
	s.logf("viewer %s (%s) joined", id, hello.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go writer(ctx, cancel, conn, out)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			s.sendError(out, protocol.ErrProtoBadRequest, "bad json")
			continue
		}
		if base.Type != protocol.TypeUI {
			s.sendError(out, protocol.ErrWrongRole, "viewers may only send UI")
			continue
		}
		if base.ProtocolVersion != protocol.Version {
			s.sendError(out, protocol.ErrProtoVersion, "bad protocol_version")
			continue
		}
		if err := s.validate(base.Type, msg); err != nil {
			s.sendError(out, protocol.ErrProtoBadRequest, err.Error())
			continue
		}
		var ui protocol.UIMsg
		if err := json.Unmarshal(msg, &ui); err != nil {
			s.sendError(out, protocol.ErrProtoBadRequest, "bad UI")
			continue
		}
		cmd, err := scene.CommandFromUI(ui)
		if err != nil {
			s.sendError(out, protocol.ErrBadCommand, err.Error())
			continue
		}
		if !s.scene.Submit(cmd) {
			s.sendError(out, protocol.ErrSceneBusy, "scene inbox full")
		}
	}
}

// leave tells the scene loop the viewer is gone. A loop that has stopped draining
// leaves is given JoinTimeout before the handler moves on.
func (s *Server) leave(id string) {
	t := time.NewTimer(s.JoinTimeout)
	defer t.Stop()
	select {
	case s.scene.Leave() <- id:
	case <-t.C:
		s.logf("viewer %s: scene did not take the leave", id)
	}
}

func (s *Server) serveTracker(conn *websocket.Conn) {
	if s.tracker == nil {
		s.reject(conn, protocol.ErrWrongRole, "gesture tracking is disabled")
		return
	}
	if !s.tracker.Attach() {
		s.reject(conn, protocol.ErrTrackerBusy, "a tracker is already attached")
		return
	}
	defer s.tracker.Detach()

	id := uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       id,
		Role:            protocol.RoleTracker,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return
	}
	s.logf("tracker %s attached", id)
	defer s.logf("tracker %s detached", id)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.ProtocolVersion != protocol.Version {
			continue
		}
		if err := s.validate(base.Type, msg); err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeHand:
			var hand protocol.HandMsg
			if err := json.Unmarshal(msg, &hand); err != nil {
				continue
			}
			s.tracker.Push(hand.Frame)
		case protocol.TypeTrackerStatus:
			var st protocol.TrackerStatusMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if st.Fatal {
				s.logf("tracker %s failed: %s", id, st.Status)
				s.tracker.Fail(strings.TrimSpace(st.Status))
			}
		}
	}
}

func (s *Server) validate(msgType string, raw []byte) error {
	if s.validator == nil {
		return nil
	}
	return s.validator.Validate(msgType, raw)
}

func (s *Server) sendError(out chan []byte, code, message string) {
	b, err := json.Marshal(errorMsg(code, message))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

// reject reports code to the client and closes the connection.
func (s *Server) reject(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, errorMsg(code, message))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	}
}

func writer(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
