package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scenestate"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent}

	s.WriteEvent(EventRow{Tick: 2})
	s.WriteReveal(RevealRow{RevealID: 1})

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropEventTotal)
	assert.Equal(t, uint64(1), st.DropRevealTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)

	var nilIndex *SQLiteIndex
	nilIndex.WriteEvent(EventRow{})
}

func TestGreetingCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	require.NoError(t, err)

	recs, total, err := s.LoadGreetings(ctx, "/tree")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, total)

	require.NoError(t, s.SaveGreetings(ctx, "/tree", []greetings.Record{
		{ID: "b", Nick: "Bo", Comment: "<p>second</p>"},
		{ID: "a", Nick: "Ann", Comment: "first"},
	}, 9))
	require.NoError(t, s.SaveGreetings(ctx, "/other", []greetings.Record{{ID: "z"}}, 1))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	recs, total, err = s.LoadGreetings(ctx, "/tree")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID, "order preserved")
	assert.Equal(t, "<p>second</p>", recs[0].Comment)
	assert.Equal(t, 9, total)

	require.NoError(t, s.SaveGreetings(ctx, "/tree", []greetings.Record{{ID: "c"}}, 1))
	recs, _, err = s.LoadGreetings(ctx, "/tree")
	require.NoError(t, err)
	require.Len(t, recs, 1, "save replaces the previous collection")
}

func TestEventAudit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	require.NoError(t, err)

	at := time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC)
	s.WriteEvent(EventRow{Session: "s1", Tick: 1, At: at, Event: gesture.Event{Kind: gesture.EventHandMove}})
	s.WriteEvent(EventRow{Session: "s1", Tick: 1, At: at, Event: gesture.SceneCommand(scenestate.Formed, gesture.ClosedFist, 0.9)})
	s.WriteEvent(EventRow{Session: "s1", Tick: 2, At: at, Event: gesture.Event{Kind: gesture.EventHandMove}})
	s.WriteEvent(EventRow{Session: "s2", Tick: 1, At: at, Event: gesture.Event{Kind: gesture.EventPinchStart}})
	s.WriteReveal(RevealRow{Session: "s1", RevealID: 1, GreetingID: "a", Nick: "Ann", Trigger: "pinch", FromOrnament: true, ShownAt: at})
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	counts, err := s.CountEvents(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"HAND_MOVE": 2, "SCENE_COMMAND": 1}, counts)

	n, err := s.CountReveals(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWritesAfterCloseAreIgnored(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	s.WriteEvent(EventRow{Session: "late"})
	s.WriteReveal(RevealRow{Session: "late"})
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
