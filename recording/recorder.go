// Package recording stores simulation sessions and their accesses in SQLite.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/replay"
	"github.com/sarchlab/csim/trace"
)

// DefaultBatchSize is the number of access rows buffered before a flush.
const DefaultBatchSize = 10000

const createSessionTable = `CREATE TABLE IF NOT EXISTS csim_session (
	ID TEXT PRIMARY KEY,
	Trace TEXT,
	SetIndexBits INTEGER,
	LinesPerSet INTEGER,
	BlockOffsetBits INTEGER,
	Policy TEXT,
	Events INTEGER,
	Hits INTEGER,
	Misses INTEGER,
	Evictions INTEGER,
	TruncatedLine INTEGER
);`

const createAccessTable = `CREATE TABLE IF NOT EXISTS csim_access (
	SessionID TEXT,
	Seq INTEGER,
	Line INTEGER,
	Op TEXT,
	Address INTEGER,
	Size INTEGER,
	Outcome TEXT
);`

const insertSession = `INSERT INTO csim_session (
	ID, Trace, SetIndexBits, LinesPerSet, BlockOffsetBits, Policy,
	Events, Hits, Misses, Evictions, TruncatedLine
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertAccess = `INSERT INTO csim_access (
	SessionID, Seq, Line, Op, Address, Size, Outcome
) VALUES (?, ?, ?, ?, ?, ?, ?)`

// SessionInfo describes the session being recorded.
type SessionInfo struct {
	Trace    string
	Geometry cache.Geometry
	Policy   cache.Policy
}

type accessEntry struct {
	seq     uint64
	line    int
	op      string
	address uint64
	size    uint64
	outcome string
}

// Recorder writes one session into a SQLite database. It is a
// replay.Observer; call Finish once the replay is over.
type Recorder struct {
	db        *sql.DB
	ownsDB    bool
	sessionID string
	info      SessionInfo

	batchSize int
	seq       uint64
	pending   []accessEntry
	err       error
	finished  bool
}

// Option configures a Recorder created by New.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets where New reports the database location. Default: stderr.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New opens (or creates) <path>.sqlite3 and starts a session in it. An empty
// path picks a unique csim_<id> name. An existing file keeps its sessions.
func New(path string, info SessionInfo, opts ...Option) (*Recorder, error) {
	o := options{logger: log.New(os.Stderr, "", 0)}
	for _, opt := range opts {
		opt(&o)
	}

	if path == "" {
		path = "csim_" + xid.New().String()
	}
	filename := path + ".sqlite3"

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}

	r, err := NewWithDB(db, info)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	r.ownsDB = true

	o.logger.Printf("Session %s recorded in %s\n", r.sessionID, filename)

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

// NewWithDB starts a session in an already open database.
func NewWithDB(db *sql.DB, info SessionInfo) (*Recorder, error) {
	for _, stmt := range []string{createSessionTable, createAccessTable} {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create recording tables: %w", err)
		}
	}

	return &Recorder{
		db:        db,
		sessionID: xid.New().String(),
		info:      info,
		batchSize: DefaultBatchSize,
	}, nil
}

// SessionID returns the identifier of the recorded session.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// SetBatchSize changes how many access rows are buffered between flushes.
func (r *Recorder) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	r.batchSize = n
}

// Observe buffers one row per access.
func (r *Recorder) Observe(event trace.Event, outcomes []cache.Outcome) {
	for _, o := range outcomes {
		r.seq++
		r.pending = append(r.pending, accessEntry{
			seq:     r.seq,
			line:    event.Line,
			op:      event.Op.String(),
			address: event.Address,
			size:    event.Size,
			outcome: o.String(),
		})
	}

	if len(r.pending) >= r.batchSize {
		_ = r.Flush()
	}
}

// Flush writes all buffered rows. The first failure sticks and is returned
// by every later Flush and by Finish.
func (r *Recorder) Flush() error {
	if r.err != nil || len(r.pending) == 0 {
		return r.err
	}

	tx, err := r.db.Begin()
	if err != nil {
		r.err = fmt.Errorf("failed to begin transaction: %w", err)
		return r.err
	}

	if err := r.writePending(tx); err != nil {
		_ = tx.Rollback()
		r.err = err
		return r.err
	}

	if err := tx.Commit(); err != nil {
		r.err = fmt.Errorf("failed to commit accesses: %w", err)
		return r.err
	}

	r.pending = r.pending[:0]

	return nil
}

func (r *Recorder) writePending(tx *sql.Tx) error {
	stmt, err := tx.Prepare(insertAccess)
	if err != nil {
		return fmt.Errorf("failed to prepare access insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range r.pending {
		// SQLite integers are signed; addresses keep their bit pattern.
		_, err := stmt.Exec(r.sessionID, int64(e.seq), e.line, e.op,
			int64(e.address), int64(e.size), e.outcome)
		if err != nil {
			return fmt.Errorf("failed to insert access: %w", err)
		}
	}

	return nil
}

// Finish flushes the remaining rows and writes the session totals.
func (r *Recorder) Finish(summary replay.Summary) error {
	if r.finished {
		return errors.New("session already finished")
	}

	if err := r.Flush(); err != nil {
		return err
	}

	truncatedLine := 0
	if summary.Truncated != nil {
		truncatedLine = summary.Truncated.Line
	}

	policy := r.info.Policy
	if policy == "" {
		policy = cache.PolicyCounter
	}

	_, err := r.db.Exec(insertSession,
		r.sessionID,
		r.info.Trace,
		r.info.Geometry.SetIndexBits,
		r.info.Geometry.LinesPerSet,
		r.info.Geometry.BlockOffsetBits,
		string(policy),
		int64(summary.Events),
		int64(summary.Hits),
		int64(summary.Misses),
		int64(summary.Evictions),
		truncatedLine,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	r.finished = true

	return nil
}

// Close flushes and, if the recorder opened the database, closes it.
func (r *Recorder) Close() error {
	err := r.Flush()

	if r.ownsDB {
		if closeErr := r.db.Close(); err == nil {
			err = closeErr
		}
	}

	return err
}
