package ingest

import (
	"time"

	"github.com/google/uuid"

	"github.com/stevdb/stevdb/internal/store"
)

// IDGenerator generates session identifiers.
// Implemented by UUIDv7Generator (production) and testutil.FixedSessionID.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string. Panics if generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Session is the state of one watch invocation: its id, start time, and
// the stage tables already created.
type Session struct {
	ID      string
	Started time.Time

	schemas map[string]*store.Schema
}

func newSession(id string, started time.Time) *Session {
	return &Session{ID: id, Started: started, schemas: make(map[string]*store.Schema)}
}

// Schema returns the schema of a table created in this session.
func (s *Session) Schema(table string) (*store.Schema, bool) {
	sc, ok := s.schemas[table]
	return sc, ok
}

// Uptime returns the time elapsed since the session started.
func (s *Session) Uptime(now time.Time) time.Duration {
	return now.Sub(s.Started)
}

func (s *Session) remember(sc *store.Schema) {
	s.schemas[sc.Table] = sc
}
