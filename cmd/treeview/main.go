// Command treeview runs the scene locally and draws it in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"

	"grandtree.dev/internal/audio"
	"grandtree.dev/internal/config"
	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/otel"
	"grandtree.dev/internal/render/term"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/sim/tuning"
	"grandtree.dev/internal/tracking"
)

func main() {
	var (
		configDir = flag.String("configs", "./configs", "config directory")
		replayDir = flag.String("replay", "", "recorded session dir to drive gesture control from")
		logPath   = flag.String("log", "", "write logs to this file (default: discard)")
		mute      = flag.Bool("mute", false, "never open the audio device")
		demo      = flag.Bool("demo", true, "use built-in greetings when no Waline server is configured")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: treeview [flags]\n\nkeys: %s\n\n", helpLine)
		flag.PrintDefaults()
	}
	flag.Parse()

	var out io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logger := log.New(out, "[treeview] ", log.LstdFlags|log.Lmicroseconds)

	env, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load env:", err)
		os.Exit(1)
	}
	tp := filepath.Join(*configDir, "tuning.yaml")
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	tune = env.Apply(tune).Normalize()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := otel.Setup(ctx, "grandtree-treeview")
	if err != nil {
		logger.Printf("otel: %v", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()
	renderer := term.New(screen)

	cfg := scene.ConfigFromTuning(tune)
	cfg.Width, cfg.Height = renderer.Viewport()
	cfg.ShowSenderEmail = bool(env.ShowSenderEmail)
	cfg.Features.ShowOthersBlessings = env.ShowOthersBlessings.Enabled()
	cfg.GestureEnabled = bool(env.EnableGestureControl) || *replayDir != ""

	store := greetings.NewStore()
	client := greetings.NewClient(env.WalineServerURL, env.WalinePath)
	switch {
	case client.Configured():
		r := &greetings.Refresher{
			Fetcher:  client,
			Store:    store,
			Path:     client.Path,
			Interval: time.Duration(tune.Greetings.RefreshSeconds) * time.Second,
			Logger:   logger,
		}
		go r.Run(ctx)
	case *demo:
		store.Set(greetings.NewCollection(demoGreetings, len(demoGreetings)))
	}

	deps := scene.Deps{Logger: logger, Store: store, Renderer: renderer}
	if cfg.GestureEnabled {
		if *replayDir != "" {
			deps.Recognizer, deps.SetupErr = tracking.Setup(ctx, "replay", func(context.Context) (gesture.Recognizer, error) {
				rp, err := tracking.OpenReplay(*replayDir)
				if err != nil {
					return nil, err
				}
				return rp, nil
			})
		} else {
			deps.SetupErr = errors.New("no camera tracker in the terminal; use -replay")
		}
	}
	if !*mute {
		deps.Music = audio.NewPlayer(nil)
	}

	sc := scene.New(cfg, deps)
	defer sc.Close()

	run(screen, renderer, sc, cfg.TickRateHz)
}

// run drives the scene from the terminal until a quit key.
func run(screen tcell.Screen, renderer *term.Renderer, sc *scene.Scene, hz int) {
	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	var pending []scene.Command
	last := time.Now()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				cmd, action := keyBinding(ev.Key(), ev.Rune())
				switch action {
				case keyQuit:
					return
				case keyCommand:
					pending = append(pending, cmd)
				}
			case *tcell.EventResize:
				screen.Sync()
				pending = append(pending, scene.Resize(renderer.Viewport()))
			}
		case now := <-ticker.C:
			sc.Step(now.Sub(last), now, pending...)
			last = now
			pending = pending[:0]
		}
	}
}
