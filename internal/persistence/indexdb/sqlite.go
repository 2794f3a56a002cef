package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/sim/gesture"
)

// SQLiteIndex keeps the greeting cache and a queryable audit of gesture events and
// reveals. Audit writes are queued and batched on one goroutine; greeting cache calls are
// synchronous.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvents  atomic.Uint64
	dropReveals atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqReveal
)

type req struct {
	kind reqKind

	event  EventRow
	reveal RevealRow
}

// EventRow is one processor event as stored in gesture_events.
type EventRow struct {
	Session string
	Tick    uint64
	At      time.Time
	Event   gesture.Event
}

type RevealRow struct {
	Session      string
	RevealID     uint64
	GreetingID   string
	Nick         string
	Trigger      string
	FromOrnament bool
	ShownAt      time.Time
}

type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropEventTotal  uint64
	DropRevealTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS greetings (
			path TEXT NOT NULL,
			seq INTEGER NOT NULL,
			object_id TEXT NOT NULL,
			nick TEXT NOT NULL,
			inserted_at TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (path, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS greeting_totals (
			path TEXT PRIMARY KEY,
			total INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS gesture_events (
			session TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			mode TEXT,
			gesture TEXT,
			score REAL,
			status TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_gesture_events_kind ON gesture_events(kind, at);`,
		`CREATE TABLE IF NOT EXISTS reveals (
			session TEXT NOT NULL,
			reveal_id INTEGER NOT NULL,
			greeting_id TEXT NOT NULL,
			nick TEXT NOT NULL,
			source TEXT NOT NULL,
			from_ornament INTEGER NOT NULL,
			shown_at TEXT NOT NULL,
			PRIMARY KEY (session, reveal_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	st := Stats{
		DropEventTotal:  s.dropEvents.Load(),
		DropRevealTotal: s.dropReveals.Load(),
	}
	if s.ch != nil {
		st.QueueDepth = len(s.ch)
		st.QueueCapacity = cap(s.ch)
	}
	return st
}

// WriteEvent queues a processor event. Events are dropped when the writer falls behind;
// the session recording remains the source of truth.
func (s *SQLiteIndex) WriteEvent(row EventRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, event: row}:
	default:
		s.dropEvents.Add(1)
	}
}

func (s *SQLiteIndex) WriteReveal(row RevealRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqReveal, reveal: row}:
	default:
		s.dropReveals.Add(1)
	}
}

// SaveGreetings replaces the cached collection for path.
func (s *SQLiteIndex) SaveGreetings(ctx context.Context, path string, recs []greetings.Record, total int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM greetings WHERE path=?`, path); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO greetings(path,seq,object_id,nick,inserted_at,raw_json) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range recs {
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, path, i, r.ID, r.Nick, r.InsertedAt, string(raw)); err != nil {
			return err
		}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO greeting_totals(path,total,updated_at) VALUES(?,?,?)`, path, total, now); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadGreetings returns the cached collection for path in its original order.
func (s *SQLiteIndex) LoadGreetings(ctx context.Context, path string) ([]greetings.Record, int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM greetings WHERE path=? ORDER BY seq`, path)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []greetings.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, err
		}
		var r greetings.Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, 0, fmt.Errorf("greeting row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total := len(out)
	err = s.db.QueryRowContext(ctx, `SELECT total FROM greeting_totals WHERE path=?`, path).Scan(&total)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, err
	}
	return out, total, nil
}

// CountEvents reports stored gesture events per kind for a session.
func (s *SQLiteIndex) CountEvents(ctx context.Context, session string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM gesture_events WHERE session=? GROUP BY kind`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) CountReveals(ctx context.Context, session string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reveals WHERE session=?`, session).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO gesture_events(session,tick,seq,at,kind,mode,gesture,score,status,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertReveal, _ := s.db.Prepare(`INSERT OR REPLACE INTO reveals(session,reveal_id,greeting_id,nick,source,from_ornament,shown_at) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
		if insertReveal != nil {
			_ = insertReveal.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		lastSession string
		lastTick    uint64
		eventSeq    int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			if e.Session != lastSession || e.Tick != lastTick {
				lastSession, lastTick = e.Session, e.Tick
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			raw, _ := json.Marshal(e.Event)
			var mode any
			if e.Event.Kind == gesture.EventSceneCommand {
				mode = e.Event.Mode.String()
			}
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(
					e.Session,
					int64(e.Tick),
					seq,
					e.At.UTC().Format(time.RFC3339Nano),
					e.Event.Kind.String(),
					mode,
					e.Event.Gesture,
					e.Event.Score,
					e.Event.Status,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqReveal:
			rv := r.reveal
			if insertReveal != nil {
				if _, err := tx.Stmt(insertReveal).Exec(
					rv.Session,
					int64(rv.RevealID),
					rv.GreetingID,
					rv.Nick,
					rv.Trigger,
					rv.FromOrnament,
					rv.ShownAt.UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
