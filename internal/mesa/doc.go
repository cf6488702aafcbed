// Package mesa reads the output files written by MESA and MESAbinary runs.
//
// Three kinds of artifact are understood:
//   - Tables: history (one row per step) and snapshot files sharing the
//     MESA column layout, optionally gzip-compressed.
//   - Termination status: a single-line file naming why the run stopped,
//     classified against the codes compiled into the MESA installation.
//   - Core-collapse snapshots: `name value` lines written by custom
//     run_star_extras hooks when a star reaches core collapse.
//
// # Table Layout
//
//	line 1     ignored
//	line 2     header names
//	line 3     header values (positional)
//	line 4     blank
//	line 5     ignored
//	line 6     column names
//	line 7..N  whitespace-delimited numeric rows
//
// # Restart De-duplication
//
// A run restarted from a photo re-computes steps already written to its
// history file, so the file holds the same model_number more than once.
// History tables keep only the rows that survive a backward scan: a row is
// kept when its model_number is strictly less than every model_number kept
// after it. After loading, model_number is strictly increasing.
package mesa
