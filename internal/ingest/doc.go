// Package ingest watches a directory of MESA runs and writes each finished
// run to the database exactly once.
//
// A Manager keeps a ledger of the runs it has handled. Every poll re-lists
// the runs directory, computes the runs not yet in the ledger (the delta),
// and processes them in name order:
//
//	manifest id -> stage presence -> load output -> termination code
//	  -> extract tracked stages -> one transaction -> ledger
//
// Each step can end the run's processing with an Outcome (missing id,
// duplicate, incomplete, unimplemented). Those runs stay out of the ledger,
// except duplicates, and are looked at again on the next poll.
//
// Runs are only ever added to the runs directory. A run from the ledger
// that is no longer listed stops the watch with ErrRunsDisappeared.
package ingest
