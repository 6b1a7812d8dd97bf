// Package journal records sessions and their state transitions in SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-focusguard/pkg/session"
	_ "modernc.org/sqlite"
)

// queueSize bounds events waiting to be written.
const queueSize = 1024

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal: closed")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER,
	ticks      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	at         INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	from_value TEXT NOT NULL DEFAULT '',
	to_value   TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, at);
`

// SessionRecord is one journaled session.
type SessionRecord struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Ticks     uint64     `json:"ticks"`
}

// EventRecord is one journaled transition.
type EventRecord struct {
	ID        int64             `json:"id"`
	SessionID string            `json:"session_id"`
	At        time.Time         `json:"at"`
	Kind      session.EventKind `json:"kind"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}

type item struct {
	ev    session.Event
	flush chan struct{}
}

// Journal writes session events on a background goroutine so observers
// never wait on disk.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger

	queue   chan item
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// Open opens (creating if needed) the journal at path. ":memory:" gives a
// private in-memory journal.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}

	j := &Journal{
		db:     db,
		logger: logger,
		queue:  make(chan item, queueSize),
		done:   make(chan struct{}),
	}
	go j.run()
	return j, nil
}

// Observe queues an event for writing. It never blocks: when the queue is
// full the event is dropped and counted. Pass it to Session.Subscribe.
func (j *Journal) Observe(ev session.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- item{ev: ev}:
	default:
		j.dropped.Add(1)
	}
}

// Flush waits until every event queued so far is written.
func (j *Journal) Flush(ctx context.Context) error {
	ack := make(chan struct{})

	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrClosed
	}
	select {
	case j.queue <- item{flush: ack}:
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	j.mu.RUnlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many events were discarded on a full queue.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

func (j *Journal) run() {
	defer close(j.done)
	for it := range j.queue {
		if it.flush != nil {
			close(it.flush)
			continue
		}
		if err := j.write(it.ev); err != nil {
			j.logger.Warn("journal write failed", "kind", it.ev.Kind, "session", it.ev.SessionID, "error", err)
		}
	}
}

func (j *Journal) write(ev session.Event) error {
	at := ev.At.UnixMilli()

	switch ev.Kind {
	case session.EventStarted:
		if _, err := j.db.Exec(`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`, ev.SessionID, at); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	case session.EventStopped:
		if _, err := j.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at, ev.SessionID); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
	case session.EventTick:
		if ev.Snapshot == nil {
			return nil
		}
		_, err := j.db.Exec(`UPDATE sessions SET ticks = ? WHERE id = ?`, ev.Snapshot.Seq, ev.SessionID)
		if err != nil {
			return fmt.Errorf("update ticks: %w", err)
		}
		return nil
	}

	_, err := j.db.Exec(`
		INSERT INTO events (session_id, at, kind, from_value, to_value, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.SessionID, at, string(ev.Kind), ev.From, ev.To, ev.Detail)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first.
func (j *Journal) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, ticks
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&r.ID, &started, &ended, &r.Ticks); err != nil {
			return nil, fmt.Errorf("journal: scan session: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if ended.Valid {
			t := time.UnixMilli(ended.Int64)
			r.EndedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Session returns one session, or nil if it is unknown.
func (j *Journal) Session(ctx context.Context, id string) (*SessionRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT id, started_at, ended_at, ticks FROM sessions WHERE id = ?`, id)

	var r SessionRecord
	var started int64
	var ended sql.NullInt64
	if err := row.Scan(&r.ID, &started, &ended, &r.Ticks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: scan session: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	if ended.Valid {
		t := time.UnixMilli(ended.Int64)
		r.EndedAt = &t
	}
	return &r, nil
}

// Events returns a session's transitions in order.
func (j *Journal) Events(ctx context.Context, sessionID string) ([]EventRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, at, kind, from_value, to_value, detail
		FROM events
		WHERE session_id = ?
		ORDER BY at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal: query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		var at int64
		var kind string
		if err := rows.Scan(&r.ID, &r.SessionID, &at, &kind, &r.From, &r.To, &r.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		r.At = time.UnixMilli(at)
		r.Kind = session.EventKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close writes what is queued and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}
