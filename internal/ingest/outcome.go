package ingest

import (
	"fmt"

	"github.com/stevdb/stevdb/internal/run"
)

// Kind classifies the outcome of processing one run.
type Kind int

const (
	KindIngested Kind = iota
	KindMissingManifestID
	KindIncomplete
	KindDuplicate
	KindUnimplemented
)

func (k Kind) String() string {
	switch k {
	case KindIngested:
		return "ingested"
	case KindMissingManifestID:
		return "missing-manifest-id"
	case KindIncomplete:
		return "incomplete"
	case KindDuplicate:
		return "duplicate"
	case KindUnimplemented:
		return "unimplemented"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the result of processing one run. It is a closed set: only
// the types in this file implement it.
type Outcome interface {
	Kind() Kind
	String() string
	outcome() // Sealed
}

// Ingested runs had every tracked stage written and their manifest entry
// marked completed. Rows counts the rows written per stage; a stage with
// zero rows was left as it was.
type Ingested struct {
	Name string
	ID   int64
	Rows map[run.Stage]int
}

func (Ingested) Kind() Kind { return KindIngested }
func (Ingested) outcome()   {}
func (o Ingested) String() string {
	return fmt.Sprintf("%s: ingested as id %d", o.Name, o.ID)
}

// SkippedMissingManifestID runs have no manifest entry yet.
type SkippedMissingManifestID struct {
	Name string
}

func (SkippedMissingManifestID) Kind() Kind { return KindMissingManifestID }
func (SkippedMissingManifestID) outcome()   {}
func (o SkippedMissingManifestID) String() string {
	return fmt.Sprintf("%s: no id in manifest", o.Name)
}

// SkippedIncomplete runs lack output or have not terminated yet.
type SkippedIncomplete struct {
	Name   string
	Reason string
}

func (SkippedIncomplete) Kind() Kind { return KindIncomplete }
func (SkippedIncomplete) outcome()   {}
func (o SkippedIncomplete) String() string {
	return fmt.Sprintf("%s: incomplete: %s", o.Name, o.Reason)
}

// SkippedDuplicate runs are already present in every tracked stage table.
type SkippedDuplicate struct {
	Name string
	ID   int64
}

func (SkippedDuplicate) Kind() Kind { return KindDuplicate }
func (SkippedDuplicate) outcome()   {}
func (o SkippedDuplicate) String() string {
	return fmt.Sprintf("%s: already in database as id %d", o.Name, o.ID)
}

// SkippedUnimplemented runs requested a stage that cannot be extracted.
type SkippedUnimplemented struct {
	Name    string
	Feature string
}

func (SkippedUnimplemented) Kind() Kind { return KindUnimplemented }
func (SkippedUnimplemented) outcome()   {}
func (o SkippedUnimplemented) String() string {
	return fmt.Sprintf("%s: %s not implemented", o.Name, o.Feature)
}
