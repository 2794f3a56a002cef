package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"grandtree.dev/internal/config"
	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/otel"
	"grandtree.dev/internal/persistence/indexdb"
	persistlog "grandtree.dev/internal/persistence/log"
	"grandtree.dev/internal/protocol"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/sim/tuning"
	"grandtree.dev/internal/tracking"
	"grandtree.dev/internal/transport/ws"
)

type options struct {
	addr       string
	configDir  string
	tuningPath string
	dataDir    string
	disableDB  bool
	record     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", ":8080", "http listen address")
	flag.StringVar(&opts.configDir, "configs", "./configs", "config directory")
	flag.StringVar(&opts.tuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	flag.StringVar(&opts.dataDir, "data", "./data", "runtime data directory")
	flag.BoolVar(&opts.disableDB, "disable_db", false, "disable the sqlite greeting cache and gesture audit")
	flag.BoolVar(&opts.record, "record", false, "record tracker frames to <data>/sessions")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if err := run(logger, opts); err != nil {
		logger.Printf("server: %v", err)
		os.Exit(1)
	}
}

// run serves until a signal or a fatal error. Deferred cleanup (recorder, index,
// tracing) has finished by the time it returns.
func run(logger *log.Logger, opts options) error {
	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	tp := strings.TrimSpace(opts.tuningPath)
	if tp == "" {
		tp = filepath.Join(opts.configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	tune = env.Apply(tune).Normalize()

	cfg := scene.ConfigFromTuning(tune)
	cfg.GestureEnabled = bool(env.EnableGestureControl)
	cfg.ShowSenderEmail = bool(env.ShowSenderEmail)
	cfg.Features = protocol.Features{
		CommentReply:        bool(env.EnableCommentReply),
		ShowOthersBlessings: env.ShowOthersBlessings.Enabled(),
		ShowDebugButton:     bool(env.ShowDebugButton),
	}

	ctx, cancel := signalContext()
	defer cancel()

	shutdownTracing, err := otel.Setup(ctx, "grandtree-server")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = shutdownTracing(ctx2)
	}()

	if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	var idx *indexdb.SQLiteIndex
	if !opts.disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(opts.dataDir, "index.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
	}

	store := greetings.NewStore()
	client := greetings.NewClient(env.WalineServerURL, env.WalinePath)
	refresher := &greetings.Refresher{
		Fetcher:  client,
		Store:    store,
		Path:     client.Path,
		Interval: time.Duration(tune.Greetings.RefreshSeconds) * time.Second,
		Logger:   logger,
	}
	if idx != nil {
		refresher.Cache = idx
	}

	deps := scene.Deps{Logger: logger, Store: store}
	if idx != nil {
		deps.Audit = idx
	}

	var remote *tracking.Remote
	if cfg.GestureEnabled {
		remote = tracking.NewRemote()
		deps.Recognizer, deps.SetupErr = tracking.Setup(ctx, "remote", func(context.Context) (gesture.Recognizer, error) {
			return remote, nil
		})
	}

	var recorder *persistlog.SessionRecorder
	if opts.record {
		recorder = persistlog.NewSessionRecorder(filepath.Join(opts.dataDir, "sessions"))
		deps.Recorder = recorder
		deps.SessionID = recorder.ID()
		logger.Printf("recording session %s to %s", recorder.ID(), recorder.Dir())
		defer func() {
			lines, n := recorder.Stats()
			if err := recorder.Close(); err != nil {
				logger.Printf("close recorder: %v", err)
			}
			logger.Printf("recorded %s frames (%s)", humanize.Comma(int64(lines)), humanize.Bytes(n))
		}()
	}

	sc := scene.New(cfg, deps)
	defer sc.Close()

	validator, err := protocol.NewValidator()
	if err != nil {
		return fmt.Errorf("schemas: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(sc, store, idx))
	if envBool("GRANDTREE_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(sc, remote, validator, logger).Handler())

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	active := cfg.Active()
	logger.Printf("scene: %d Hz, %s foliage, %d ornaments, gesture=%t, waline=%t",
		cfg.TickRateHz, humanize.Comma(int64(active.Foliage)), active.Ornaments,
		cfg.GestureEnabled, client.Configured())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error { return refresher.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	g.Go(func() error {
		logger.Printf("listening on %s", opts.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
