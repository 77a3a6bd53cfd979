package recording

import (
	"database/sql"
	"fmt"

	"github.com/sarchlab/csim/cache"
)

// Session is a recorded session row.
type Session struct {
	ID            string
	Trace         string
	Geometry      cache.Geometry
	Policy        cache.Policy
	Events        uint64
	Stats         cache.Statistics
	TruncatedLine int
}

// Access is a recorded access row.
type Access struct {
	Seq     uint64
	Line    int
	Op      string
	Address uint64
	Size    uint64
	Outcome string
}

// OpenDB opens an existing recording database file.
func OpenDB(filename string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+filename+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}

	return db, nil
}

// ReadSessions returns every finished session in the database.
func ReadSessions(db *sql.DB) ([]Session, error) {
	rows, err := db.Query(`SELECT ID, Trace, SetIndexBits, LinesPerSet,
		BlockOffsetBits, Policy, Events, Hits, Misses, Evictions, TruncatedLine
		FROM csim_session ORDER BY ID`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var s Session
		var policy string
		var events, hits, misses, evictions int64

		err := rows.Scan(&s.ID, &s.Trace,
			&s.Geometry.SetIndexBits, &s.Geometry.LinesPerSet,
			&s.Geometry.BlockOffsetBits, &policy,
			&events, &hits, &misses, &evictions, &s.TruncatedLine)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		s.Policy = cache.Policy(policy)
		s.Events = uint64(events)
		s.Stats = cache.Statistics{
			Hits:      uint64(hits),
			Misses:    uint64(misses),
			Evictions: uint64(evictions),
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// ReadAccesses returns the accesses of a session in replay order.
func ReadAccesses(db *sql.DB, sessionID string) ([]Access, error) {
	rows, err := db.Query(`SELECT Seq, Line, Op, Address, Size, Outcome
		FROM csim_access WHERE SessionID = ? ORDER BY Seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accesses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accesses []Access
	for rows.Next() {
		var a Access
		var seq, address, size int64

		if err := rows.Scan(&seq, &a.Line, &a.Op, &address, &size, &a.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan access: %w", err)
		}

		a.Seq = uint64(seq)
		a.Address = uint64(address)
		a.Size = uint64(size)
		accesses = append(accesses, a)
	}

	return accesses, rows.Err()
}
