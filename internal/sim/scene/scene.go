// Package scene runs the tree simulation: one goroutine owns the entity fields, the
// scene mode, gesture processing and reveal dispatch, and fans results out to viewers.
package scene

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/persistence/indexdb"
	persistlog "grandtree.dev/internal/persistence/log"
	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/camera"
	"grandtree.dev/internal/sim/dispatch"
	"grandtree.dev/internal/sim/field"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/mathx"
	"grandtree.dev/internal/sim/scenestate"
	"grandtree.dev/internal/sim/tuning"
	"grandtree.dev/internal/tracking"
)

const (
	StatusGestureDisabled = "GESTURE CONTROL DISABLED"
	StatusReady           = "AI READY: SHOW HAND"
)

// Recorder receives every processed tracker frame.
type Recorder interface {
	WriteTick(rec persistlog.TickRecord) error
}

// Audit receives gesture events and shown reveals. Writes must not block.
type Audit interface {
	WriteEvent(row indexdb.EventRow)
	WriteReveal(row indexdb.RevealRow)
}

// Music plays or stops the background track.
type Music interface {
	SetPlaying(on bool) error
}

type Deps struct {
	Logger *log.Logger
	Store  *greetings.Store

	// Recognizer is nil when no tracker is available. SetupErr, when set, is the reason
	// the recognizer could not be started.
	Recognizer gesture.Recognizer
	SetupErr   error

	Renderer Renderer
	Recorder Recorder
	Audit    Audit
	Music    Music

	// SessionID tags audit rows.
	SessionID string
}

type JoinRequest struct {
	SessionID string
	Name      string
	Width     int
	Height    int
	Out       chan []byte
	Resp      chan protocol.WelcomeMsg
}

type Scene struct {
	cfg       Config
	logger    *log.Logger
	store     *greetings.Store
	rec       gesture.Recognizer
	pump      *tracking.Pump
	renderer  Renderer
	recorder  Recorder
	audit     Audit
	music     Music
	sessionID string

	mode   *scenestate.Controller
	proc   *gesture.Processor
	disp   *dispatch.Dispatcher
	rig    *camera.Rig
	fields []*field.Field
	star   field.Star

	hand     gesture.HandPos
	status   string
	terminal bool
	playing  bool
	revealed bool
	width    int
	height   int
	elapsed  float32
	start    time.Time
	now      time.Time

	tick    atomic.Uint64
	metrics atomic.Value
	drops   uint64

	inbox chan Command
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	stopOnce  sync.Once
	closeOnce sync.Once

	viewers map[string]chan []byte
	pending []protocol.EventMsg
}

func New(cfg Config, deps Deps) *Scene {
	cfg = cfg.normalized()
	logger := deps.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[scene] ", log.LstdFlags|log.Lmicroseconds)
	}
	s := &Scene{
		cfg:       cfg,
		logger:    logger,
		store:     deps.Store,
		rec:       deps.Recognizer,
		renderer:  deps.Renderer,
		recorder:  deps.Recorder,
		audit:     deps.Audit,
		music:     deps.Music,
		sessionID: deps.SessionID,

		mode: scenestate.NewController(scenestate.Chaos),
		proc: gesture.NewProcessor(cfg.Gesture),
		rig:  camera.New(cfg.Camera),
		star: field.NewStar(cfg.Tree),

		width:  cfg.Width,
		height: cfg.Height,

		inbox:   make(chan Command, 256),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		stop:    make(chan struct{}),
		viewers: map[string]chan []byte{},
	}

	capacity := cfg.capacity()
	s.fields = make([]*field.Field, len(field.Kinds))
	for _, k := range field.Kinds {
		s.fields[k] = field.NewKind(k, countFor(capacity, k), cfg.Tree, cfg.Seed+uint64(k)*0x9e37)
	}
	s.applyDensity()

	s.disp = dispatch.New(cfg.Reveal, s.greetingSource, ornamentPicker{s}, sceneEffects{s},
		mathx.Stream(cfg.Seed, 0x7265, 0))
	s.disp.SetCenter(s.center())

	switch {
	case !cfg.GestureEnabled:
		s.setStatus(StatusGestureDisabled, false)
	case deps.SetupErr != nil:
		s.applyEvents(s.proc.Fail("INIT ERROR: "+deps.SetupErr.Error()), 0, time.Time{})
	case deps.Recognizer == nil:
		s.applyEvents(s.proc.Fail("INIT ERROR: no tracker"), 0, time.Time{})
	default:
		s.setStatus(StatusReady, false)
	}
	s.metrics.Store(Metrics{Mode: s.mode.Mode().String()})
	return s
}

// Submit queues a command for the next tick. It reports false when the inbox is full.
func (s *Scene) Submit(cmd Command) bool {
	select {
	case s.inbox <- cmd:
		return true
	default:
		return false
	}
}

func (s *Scene) Join() chan<- JoinRequest { return s.join }
func (s *Scene) Leave() chan<- string     { return s.leave }

// Mode is safe to call from any goroutine.
func (s *Scene) Mode() scenestate.Mode { return s.mode.Mode() }

func (s *Scene) CurrentTick() uint64 { return s.tick.Load() }

// Stop makes Run return nil.
func (s *Scene) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Close releases the recognizer. In-flight results are discarded.
func (s *Scene) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.rec != nil {
			err = s.rec.Close()
		}
		if s.pump != nil {
			s.pump.Wait()
		}
	})
	return err
}

func (s *Scene) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []Command
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.join:
			s.handleJoin(req)
		case id := <-s.leave:
			s.handleLeave(id)
		case cmd := <-s.inbox:
			pending = append(pending, cmd)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			s.step(ctx, dt, now, pending)
			pending = pending[:0]
		}
	}
}

// Step advances the scene by dt using the same ordering as Run. It is for hosts that
// drive their own clock (tests, the terminal preview) and must not be mixed with Run.
func (s *Scene) Step(dt time.Duration, now time.Time, cmds ...Command) {
	s.step(context.Background(), dt, now, cmds)
}

func (s *Scene) step(ctx context.Context, dt time.Duration, now time.Time, cmds []Command) {
	began := time.Now()
	if s.start.IsZero() {
		s.start = now
	}
	s.now = now
	if dt < 0 {
		dt = 0
	}
	if dt > s.cfg.MaxStep {
		dt = s.cfg.MaxStep
	}
	fdt := float32(dt.Seconds())
	tick := s.tick.Add(1)

	for _, cmd := range cmds {
		s.apply(cmd, now)
	}
	s.pollTracker(ctx, tick, now)
	s.disp.Tick(now)

	mode := s.mode.Mode()
	s.elapsed += fdt
	for _, f := range s.fields {
		f.Tick(fdt, mode, s.elapsed)
	}
	s.star.Tick(fdt, mode)
	s.rig.Tick(fdt, mode)

	if s.renderer != nil {
		s.renderer.Draw(s.view(tick))
	}
	s.flush(tick)
	s.publishMetrics(tick, time.Since(began))
}

func (s *Scene) apply(cmd Command, now time.Time) {
	switch cmd.Kind {
	case CmdToggle:
		s.modeChanged(s.mode.Toggle())
	case CmdSetMode:
		if s.mode.Set(cmd.Mode) {
			s.modeChanged(cmd.Mode)
		}
	case CmdRandomGreeting:
		s.disp.Trigger(dispatch.TriggerButton, now)
	case CmdRelease:
		s.disp.Release(now)
	case CmdResize:
		s.width, s.height = max(0, cmd.Width), max(0, cmd.Height)
		s.applyDensity()
		s.disp.SetCenter(s.center())
	case CmdStarClick:
		s.playing = !s.playing
		if s.music != nil {
			if err := s.music.SetPlaying(s.playing); err != nil {
				s.logger.Printf("music: %v", err)
			}
		}
		s.queue(protocol.EventMsg{Kind: protocol.EventMusic, Music: s.playing})
	default:
		s.logger.Printf("scene: ignoring %v", cmd.Kind)
	}
}

func (s *Scene) modeChanged(m scenestate.Mode) {
	s.queue(protocol.EventMsg{Kind: protocol.EventMode, Mode: m.String()})
}

func (s *Scene) pollTracker(ctx context.Context, tick uint64, now time.Time) {
	if !s.cfg.GestureEnabled || s.rec == nil || s.proc.Failed() {
		return
	}
	if s.pump == nil {
		s.pump = tracking.NewPump(s.rec, now)
	}
	res, ok := s.pump.Poll(ctx, now)
	if !ok {
		return
	}

	var evs []gesture.Event
	switch {
	case res.Err == nil:
		evs = s.proc.Process(res.Frame, now)
		if s.recorder != nil {
			rec := persistlog.TickRecord{
				Tick:   tick,
				AtMS:   now.Sub(s.start).Milliseconds(),
				Mode:   s.mode.Mode(),
				Frame:  res.Frame,
				Events: evs,
			}
			if err := s.recorder.WriteTick(rec); err != nil {
				s.logger.Printf("record tick %d: %v", tick, err)
			}
		}
	case errors.Is(res.Err, tracking.ErrSetup), errors.Is(res.Err, tracking.ErrClosed):
		s.logger.Printf("gesture tracking stopped: %v", res.Err)
		evs = s.proc.Fail("INIT ERROR: " + res.Err.Error())
	case errors.Is(res.Err, context.Canceled):
		return
	default:
		s.logger.Printf("gesture recognize: %v", res.Err)
		evs = []gesture.Event{gesture.Status("AI ERROR: " + res.Err.Error())}
	}
	s.applyEvents(evs, tick, now)
}

func (s *Scene) applyEvents(evs []gesture.Event, tick uint64, now time.Time) {
	for _, ev := range evs {
		if s.audit != nil {
			s.audit.WriteEvent(indexdb.EventRow{Session: s.sessionID, Tick: tick, At: now, Event: ev})
		}
		switch ev.Kind {
		case gesture.EventSceneCommand:
			if s.mode.Set(ev.Mode) {
				s.modeChanged(ev.Mode)
			}
		case gesture.EventPinchStart:
			s.disp.Trigger(dispatch.TriggerPinch, now)
		case gesture.EventPinchEnd:
			s.disp.Release(now)
		case gesture.EventHandMove:
			s.hand = ev.Hand
			s.rig.SetHand(ev.Hand)
		case gesture.EventStatus:
			s.setStatus(ev.Status, ev.Terminal)
		}
	}
}

func (s *Scene) setStatus(text string, terminal bool) {
	if s.terminal {
		return
	}
	s.status = text
	s.terminal = terminal
	s.queue(protocol.EventMsg{Kind: protocol.EventStatus, Status: text, Terminal: terminal})
}

func (s *Scene) queue(ev protocol.EventMsg) {
	s.pending = append(s.pending, ev)
}

// foliageShare divides the profile's foliage count; the cache is allocated at the full
// count but only 1/foliageShare of it is drawn.
const foliageShare = 2

// applyDensity picks the profile for the current viewport width.
func (s *Scene) applyDensity() {
	counts := activeCounts(s.cfg.Density.For(s.width))
	for _, k := range field.Kinds {
		s.fields[k].SetCount(countFor(counts, k))
	}
}

// activeCounts is what a profile actually draws.
func activeCounts(c tuning.Counts) tuning.Counts {
	c.Foliage /= foliageShare
	return c
}

func (s *Scene) center() dispatch.Anchor {
	return dispatch.Anchor{X: float64(s.width) / 2, Y: float64(s.height) / 2}
}

func (s *Scene) view(tick uint64) View {
	v := View{
		Tick:        tick,
		Time:        s.elapsed,
		Mode:        s.mode.Mode(),
		Fields:      make([]FieldView, len(s.fields)),
		Star:        s.star,
		Hand:        s.hand,
		CameraYaw:   s.rig.Yaw(),
		CameraPitch: s.rig.Pitch(),
		Project:     s.rig.Project,
		Revealed:    s.revealed,
		Status:      s.status,
		Music:       s.playing,
		Width:       s.width,
		Height:      s.height,
	}
	for i, f := range s.fields {
		v.Fields[i] = FieldView{Kind: f.Kind(), Entities: f.Entities()}
	}
	if r, ok := s.disp.Active(); ok {
		v.Reveal = &r
	}
	return v
}

func (s *Scene) handleJoin(req JoinRequest) {
	if req.Out != nil && req.SessionID != "" {
		s.viewers[req.SessionID] = req.Out
	}
	if req.Width > 0 || req.Height > 0 {
		s.apply(Resize(req.Width, req.Height), time.Now())
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       req.SessionID,
		Role:            protocol.RoleViewer,
		TickRateHz:      s.cfg.TickRateHz,
		Mode:            s.mode.Mode().String(),
		Features:        s.features(),
	}
	if req.Resp != nil {
		select {
		case req.Resp <- welcome:
		default:
		}
	}
	if req.Out != nil && s.status != "" {
		s.send(req.Out, protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Tick:            s.tick.Load(),
			Kind:            protocol.EventStatus,
			Status:          s.status,
			Terminal:        s.terminal,
		})
	}
}

func (s *Scene) handleLeave(id string) {
	delete(s.viewers, id)
}

func (s *Scene) features() protocol.Features {
	f := s.cfg.Features
	f.GestureControl = s.cfg.GestureEnabled && !s.proc.Failed()
	return f
}

// flush sends queued EVENT messages to every viewer, and a STATE every StateEvery ticks.
func (s *Scene) flush(tick uint64) {
	events := s.pending
	s.pending = s.pending[:0]
	if len(s.viewers) == 0 {
		return
	}
	for _, ev := range events {
		ev.Type = protocol.TypeEvent
		ev.ProtocolVersion = protocol.Version
		ev.Tick = tick
		s.broadcast(ev)
	}
	if tick%uint64(s.cfg.StateEvery) == 0 {
		s.broadcast(s.stateMsg(tick))
	}
}

func (s *Scene) stateMsg(tick uint64) protocol.StateMsg {
	counts := s.counts()
	return protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Mode:            s.mode.Mode().String(),
		Hand:            s.hand,
		Busy:            s.disp.Busy(),
		Music:           s.playing,
		StarScale:       s.star.Scale,
		CameraYaw:       s.rig.Yaw(),
		Counts:          counts,
		Greetings:       s.greetingCount(),
		Status:          s.status,
	}
}

func (s *Scene) counts() protocol.Counts {
	return protocol.Counts{
		Foliage:   s.fields[field.KindFoliage].Count(),
		Ornaments: s.fields[field.KindOrnament].Count(),
		Elements:  s.fields[field.KindElement].Count(),
		Lights:    s.fields[field.KindLight].Count(),
	}
}

func (s *Scene) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("marshal %T: %v", v, err)
		return
	}
	for _, out := range s.viewers {
		if sendLatest(out, b) {
			s.drops++
		}
	}
}

func (s *Scene) send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("marshal %T: %v", v, err)
		return
	}
	if sendLatest(out, b) {
		s.drops++
	}
}

// sendLatest delivers b, dropping the oldest queued message when the viewer is behind.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return false
	default:
	}
	dropped := false
	select {
	case <-ch:
		dropped = true
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return dropped
}

func countFor(c tuning.Counts, k field.Kind) int {
	switch k {
	case field.KindFoliage:
		return c.Foliage
	case field.KindOrnament:
		return c.Ornaments
	case field.KindElement:
		return c.Elements
	case field.KindLight:
		return c.Lights
	default:
		return 0
	}
}
