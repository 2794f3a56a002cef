// Command handsim connects to a scene server as the gesture tracker and streams
// synthetic hand frames, for exercising gesture control without a camera.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"grandtree.dev/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "handsim", "tracker name")
		fps   = flag.Int("fps", 30, "frames per second")
		hold  = flag.String("pose", "", "hold one pose (none|idle|palm|fist|pinch) instead of cycling")
		fatal = flag.String("fail", "", "send this fatal tracker status after connecting, then exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[handsim] ", log.LstdFlags|log.Lmicroseconds)

	script := cycle
	if *hold != "" {
		p, err := parsePose(*hold)
		if err != nil {
			logger.Fatalf("pose: %v", err)
		}
		script = []step{{p, time.Second}}
	}
	if *fps <= 0 {
		*fps = 30
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Role:            protocol.RoleTracker,
		Name:            *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	if err := awaitWelcome(conn, logger); err != nil {
		logger.Fatalf("handshake: %v", err)
	}

	if *fatal != "" {
		_ = conn.WriteJSON(protocol.TrackerStatusMsg{
			Type:            protocol.TypeTrackerStatus,
			ProtocolVersion: protocol.Version,
			Status:          *fatal,
			Fatal:           true,
		})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}

	// Drain server messages so errors are logged and close frames are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			logServerMessage(logger, msg)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	ticker := time.NewTicker(time.Second / time.Duration(*fps))
	defer ticker.Stop()
	start := time.Now()
	last := pose(-1)
	for {
		select {
		case <-stop:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-closed:
			logger.Printf("server closed the connection")
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			p := poseAt(script, elapsed)
			if p != last {
				logger.Printf("pose %s", poseName(p))
				last = p
			}
			x, y := drift(elapsed)
			msg := protocol.HandMsg{
				Type:            protocol.TypeHand,
				ProtocolVersion: protocol.Version,
				TS:              elapsed.Milliseconds(),
				Frame:           handFrame(p, x, y),
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Printf("send HAND: %v", err)
				return
			}
		}
	}
}

func awaitWelcome(conn *websocket.Conn, logger *log.Logger) error {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return err
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return err
		}
		logger.Printf("WELCOME session_id=%s tick_rate=%d mode=%s", w.SessionID, w.TickRateHz, w.Mode)
		return nil
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return err
		}
		return fmt.Errorf("%s: %s", e.Code, e.Message)
	default:
		return fmt.Errorf("unexpected %s", base.Type)
	}
}

func logServerMessage(logger *log.Logger, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeError {
		return
	}
	var e protocol.ErrorMsg
	if err := json.Unmarshal(msg, &e); err == nil {
		logger.Printf("ERROR %s: %s", e.Code, e.Message)
	}
}

func poseName(p pose) string {
	switch p {
	case poseIdle:
		return "idle"
	case posePalm:
		return "palm"
	case poseFist:
		return "fist"
	case posePinch:
		return "pinch"
	default:
		return "none"
	}
}
