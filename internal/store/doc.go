// Package store persists extracted stage records to SQLite.
//
// The database holds two kinds of tables:
//   - The manifest: (id, model_name, status), created upstream when the
//     grid is generated. This package only reads ids and writes status.
//   - Stage tables (initials, finals, core collapse, XRB phase): created
//     on first use from the first record written, keyed by model_id.
//
// Table and column names come from configuration and from MESA column
// names, so they are quoted as identifiers. Values are always bound as
// parameters.
//
// # Series fan-out
//
// A record holding run.Series values becomes one row per series element,
// with its scalar columns repeated on each row. All series of a record
// must share one length.
//
// # Connection
//
// Settings travel in the DSN so every connection gets them:
//   - _journal_mode=WAL: the manifest stays readable during a write
//   - _synchronous=NORMAL
//   - _busy_timeout=5000: wait up to 5 seconds for a lock
//   - _txlock=immediate: a run's transaction takes the write lock at BEGIN
package store
