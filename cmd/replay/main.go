package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"grandtree.dev/internal/persistence/indexdb"
	persistlog "grandtree.dev/internal/persistence/log"
	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/sim/tuning"
)

func main() {
	var (
		sessionDir = flag.String("session", "", "recorded session dir containing frames-*.jsonl.zst")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml used by the recording")
		dbPath     = flag.String("db", "", "index.sqlite to compare audited event counts against (optional)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *sessionDir == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	cfg := scene.ConfigFromTuning(tune)

	var recs []persistlog.TickRecord
	err = persistlog.ReadSession(*sessionDir, func(r persistlog.TickRecord) error {
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read session:", err)
		os.Exit(1)
	}
	if len(recs) > 0 {
		fmt.Printf("session frames=%s ticks=%d..%d\n", humanize.Comma(int64(len(recs))), recs[0].Tick, recs[len(recs)-1].Tick)
	}

	rep, err := verify(cfg.Gesture, recs, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d of %d frames\n", rep.Checked, rep.Frames)
	printKinds("replayed", rep.Kinds)

	if *dbPath == "" {
		return
	}
	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()
	ctx := context.Background()
	session := sessionID(*sessionDir)
	audited, err := idx.CountEvents(ctx, session)
	if err != nil {
		fmt.Fprintln(os.Stderr, "count events:", err)
		os.Exit(1)
	}
	printKinds("audited", audited)
	if n, err := idx.CountReveals(ctx, session); err == nil {
		fmt.Printf("audited reveals=%d\n", n)
	}
}

func printKinds(label string, kinds map[string]int) {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("%s %s=%s\n", label, k, humanize.Comma(int64(kinds[k])))
	}
}

// sessionID is the recorder's id, which names the session directory.
func sessionID(dir string) string { return filepath.Base(filepath.Clean(dir)) }
