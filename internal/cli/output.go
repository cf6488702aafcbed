package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stevdb/stevdb/internal/ingest"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution, including Ctrl-C during a watch
	ExitFailure      = 1 // The watch stopped on an error (runs disappeared, database failure)
	ExitCommandError = 2 // Unusable setup (config, MESA installation, runs directory, database)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// TableCount is one line of the show command.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// PollSummary is the JSON form of a poll report.
type PollSummary struct {
	Session           string `json:"session"`
	Listed            int    `json:"listed"`
	Pending           int    `json:"pending"`
	Ingested          int    `json:"ingested"`
	MissingManifestID int    `json:"missing_manifest_id"`
	Incomplete        int    `json:"incomplete"`
	Duplicate         int    `json:"duplicate"`
	Unimplemented     int    `json:"unimplemented"`
	Failed            int    `json:"failed"`
}

func summarize(r ingest.PollReport) PollSummary {
	return PollSummary{
		Session:           r.Session,
		Listed:            r.Listed,
		Pending:           r.Pending,
		Ingested:          r.Ingested,
		MissingManifestID: r.MissingManifestID,
		Incomplete:        r.Incomplete,
		Duplicate:         r.Duplicate,
		Unimplemented:     r.Unimplemented,
		Failed:            r.Failed,
	}
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Counts writes per-table row counts.
func (f *OutputFormatter) Counts(counts []TableCount) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(counts)
	}

	width := len("TABLE")
	for _, c := range counts {
		width = max(width, len(c.Table))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %s\n", width, "TABLE", "ROWS")
	for _, c := range counts {
		fmt.Fprintf(&b, "%-*s  %d\n", width, c.Table, c.Rows)
	}
	_, err := io.WriteString(f.Writer, b.String())
	return err
}

// Report writes the outcome of a single poll.
func (f *OutputFormatter) Report(r ingest.PollReport) error {
	s := summarize(r)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(s)
	}

	_, err := fmt.Fprintf(f.Writer,
		"%d listed, %d pending: %d ingested, %d without manifest id, %d incomplete, %d duplicate, %d unimplemented, %d failed\n",
		s.Listed, s.Pending, s.Ingested, s.MissingManifestID, s.Incomplete, s.Duplicate, s.Unimplemented, s.Failed)
	return err
}
