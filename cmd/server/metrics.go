package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/persistence/indexdb"
	"grandtree.dev/internal/sim/scene"
)

func metricsHandler(sc *scene.Scene, store *greetings.Store, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeSceneMetrics(rw, sc.Metrics(), store)
		if idx != nil {
			writeIndexMetrics(rw, idx.Stats())
		}
	}
}

// Minimal Prometheus exposition format.
func writeSceneMetrics(w io.Writer, m scene.Metrics, store *greetings.Store) {
	fmt.Fprintf(w, "# HELP grandtree_scene_tick Current scene tick.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_tick gauge\n")
	fmt.Fprintf(w, "grandtree_scene_tick %d\n", m.Tick)

	fmt.Fprintf(w, "# HELP grandtree_scene_formed Whether the tree is formed (1) or chaotic (0).\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_formed gauge\n")
	fmt.Fprintf(w, "grandtree_scene_formed %d\n", boolGauge(m.Mode == "FORMED"))

	fmt.Fprintf(w, "# HELP grandtree_scene_viewers Connected viewers.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_viewers gauge\n")
	fmt.Fprintf(w, "grandtree_scene_viewers %d\n", m.Viewers)

	fmt.Fprintf(w, "# HELP grandtree_scene_reveal_busy Whether a greeting reveal is in progress.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_reveal_busy gauge\n")
	fmt.Fprintf(w, "grandtree_scene_reveal_busy %d\n", boolGauge(m.Busy))

	fmt.Fprintf(w, "# HELP grandtree_scene_tracker_terminal Whether gesture tracking stopped for good.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_tracker_terminal gauge\n")
	fmt.Fprintf(w, "grandtree_scene_tracker_terminal %d\n", boolGauge(m.Terminal))

	fmt.Fprintf(w, "# HELP grandtree_scene_entities Visible entities per kind.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_entities gauge\n")
	kinds := make([]string, 0, len(m.Counts))
	for k := range m.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "grandtree_scene_entities{kind=%q} %d\n", k, m.Counts[k])
	}

	fmt.Fprintf(w, "# HELP grandtree_scene_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_queue_depth gauge\n")
	fmt.Fprintf(w, "grandtree_scene_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(w, "grandtree_scene_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
	fmt.Fprintf(w, "grandtree_scene_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)

	fmt.Fprintf(w, "# HELP grandtree_tracker_calls_total Recognizer calls started.\n")
	fmt.Fprintf(w, "# TYPE grandtree_tracker_calls_total counter\n")
	fmt.Fprintf(w, "grandtree_tracker_calls_total %d\n", m.TrackerCalls)

	fmt.Fprintf(w, "# HELP grandtree_tracker_dropped_total Recognizer results discarded.\n")
	fmt.Fprintf(w, "# TYPE grandtree_tracker_dropped_total counter\n")
	fmt.Fprintf(w, "grandtree_tracker_dropped_total %d\n", m.TrackerDropped)

	fmt.Fprintf(w, "# HELP grandtree_viewer_drops_total Messages dropped for slow viewers.\n")
	fmt.Fprintf(w, "# TYPE grandtree_viewer_drops_total counter\n")
	fmt.Fprintf(w, "grandtree_viewer_drops_total %d\n", m.ViewerDrops)

	fmt.Fprintf(w, "# HELP grandtree_scene_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(w, "# TYPE grandtree_scene_step_ms gauge\n")
	fmt.Fprintf(w, "grandtree_scene_step_ms %.3f\n", m.StepMS)

	fmt.Fprintf(w, "# HELP grandtree_greetings Greetings currently loaded.\n")
	fmt.Fprintf(w, "# TYPE grandtree_greetings gauge\n")
	fmt.Fprintf(w, "grandtree_greetings %d\n", m.Greetings)

	fmt.Fprintf(w, "# HELP grandtree_greetings_updates_total Greeting collection swaps.\n")
	fmt.Fprintf(w, "# TYPE grandtree_greetings_updates_total counter\n")
	fmt.Fprintf(w, "grandtree_greetings_updates_total %d\n", store.Updates())
}

func writeIndexMetrics(w io.Writer, st indexdb.Stats) {
	fmt.Fprintf(w, "# HELP grandtree_index_queue_depth Pending sqlite writes.\n")
	fmt.Fprintf(w, "# TYPE grandtree_index_queue_depth gauge\n")
	fmt.Fprintf(w, "grandtree_index_queue_depth %d\n", st.QueueDepth)

	fmt.Fprintf(w, "# HELP grandtree_index_queue_capacity Sqlite write queue capacity.\n")
	fmt.Fprintf(w, "# TYPE grandtree_index_queue_capacity gauge\n")
	fmt.Fprintf(w, "grandtree_index_queue_capacity %d\n", st.QueueCapacity)

	fmt.Fprintf(w, "# HELP grandtree_index_dropped_total Audit rows dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE grandtree_index_dropped_total counter\n")
	fmt.Fprintf(w, "grandtree_index_dropped_total{table=%q} %d\n", "gesture_events", st.DropEventTotal)
	fmt.Fprintf(w, "grandtree_index_dropped_total{table=%q} %d\n", "reveals", st.DropRevealTotal)
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
