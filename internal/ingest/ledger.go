package ingest

import "sort"

// Ledger records the runs already handled in this session. A run in the
// ledger is never inspected again.
type Ledger struct {
	names map[string]struct{}
}

// NewLedger creates a ledger holding names.
func NewLedger(names ...string) *Ledger {
	l := &Ledger{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		l.Add(n)
	}
	return l
}

// Add records name.
func (l *Ledger) Add(name string) {
	l.names[name] = struct{}{}
}

// Has reports whether name is recorded.
func (l *Ledger) Has(name string) bool {
	_, ok := l.names[name]
	return ok
}

// Len returns the number of recorded runs.
func (l *Ledger) Len() int {
	return len(l.names)
}

// Names returns recorded runs, sorted.
func (l *Ledger) Names() []string {
	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
