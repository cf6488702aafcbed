package testutil

// FixedSessionID generates the same session identifier every time, so log
// and ledger output is reproducible across test runs.
type FixedSessionID struct {
	id string
}

// NewFixedSessionID creates a fixed generator. An empty id yields
// "test-session-default".
func NewFixedSessionID(id string) *FixedSessionID {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionID{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionID) Generate() string {
	return g.id
}
