package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/stevdb/stevdb/internal/config"
	"github.com/stevdb/stevdb/internal/mesa"
	"github.com/stevdb/stevdb/internal/run"
	"github.com/stevdb/stevdb/internal/store"
)

// FeatureCEPhase names the common-envelope stage in outcomes.
const FeatureCEPhase = "ce_phase"

// Manager watches a runs directory and writes finished runs to the store.
//
// Thread-safety: a Manager is driven by a single goroutine (Watch or
// Poll). None of its methods are safe for concurrent use.
type Manager struct {
	cfg        *config.Config
	columns    *config.HistoryColumns
	store      *store.Store
	classifier *mesa.Classifier

	clock    Clock
	idGen    IDGenerator
	progress io.Writer
	observer func(PollReport)

	session *Session
	ledger  *Ledger
	listing *Listing
	polls   int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock (tests).
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIDGenerator replaces the UUIDv7 session id generator (tests).
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.idGen = g }
}

// WithProgress draws a progress bar on w while a poll drains more than
// one run.
func WithProgress(w io.Writer) Option {
	return func(m *Manager) { m.progress = w }
}

// WithPollObserver calls fn after every poll of Watch.
func WithPollObserver(fn func(PollReport)) Option {
	return func(m *Manager) { m.observer = fn }
}

// New creates a Manager and rebuilds its ledger.
//
// Unless replace_models is set, runs the manifest marks completed and that
// are still listed are put in the ledger so they are not inspected again.
func New(
	ctx context.Context,
	cfg *config.Config,
	columns *config.HistoryColumns,
	st *store.Store,
	classifier *mesa.Classifier,
	opts ...Option,
) (*Manager, error) {
	if err := cfg.CheckColumns(columns); err != nil {
		return nil, fmt.Errorf("history columns: %w", err)
	}

	m := &Manager{
		cfg:        cfg,
		columns:    columns,
		store:      st,
		classifier: classifier,
		clock:      realClock{},
		idGen:      UUIDv7Generator{},
		ledger:     NewLedger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.session = newSession(m.idGen.Generate(), m.clock.Now())

	listing, err := Scan(cfg.Stevdb.RunsDirectory)
	if err != nil {
		return nil, err
	}
	m.listing = listing

	if !cfg.Stevdb.ReplaceModels {
		completed, err := st.CompletedRuns(ctx, cfg.Stevdb.ManifestTable)
		if err != nil {
			return nil, fmt.Errorf("rebuild ledger: %w", err)
		}
		for _, name := range completed {
			if listing.Has(name) {
				m.ledger.Add(name)
			}
		}
	}

	slog.Info("session started",
		"session", m.session.ID,
		"runs", cfg.Stevdb.RunsDirectory,
		"listed", len(listing.Names),
		"completed", m.ledger.Len(),
		"replace", cfg.Stevdb.ReplaceModels,
	)
	return m, nil
}

// Session returns the current session.
func (m *Manager) Session() *Session { return m.session }

// Ledger returns the runs handled so far.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// Delta re-lists the runs directory and returns the runs not yet in the
// ledger, sorted. A ledger entry missing from the listing is fatal.
func (m *Manager) Delta() ([]string, error) {
	listing, err := Scan(m.cfg.Stevdb.RunsDirectory)
	if err != nil {
		return nil, err
	}

	// every ledger entry must still be listed, which also means the
	// listing never shrinks below the ledger
	for _, name := range m.ledger.Names() {
		if !listing.Has(name) {
			return nil, fmt.Errorf("%s: %w", name, ErrRunsDisappeared)
		}
	}
	if len(listing.Names) < m.ledger.Len() {
		return nil, fmt.Errorf("%d listed, %d handled: %w", len(listing.Names), m.ledger.Len(), ErrRunsDisappeared)
	}
	m.listing = listing

	var work []string
	for _, name := range listing.Names {
		if !m.ledger.Has(name) {
			work = append(work, name)
		}
	}
	return work, nil
}

// ProcessRun inspects one run and, if it is finished, writes every tracked
// stage and marks it completed in the manifest. Runs that cannot be
// ingested yet are reported through the Outcome; only database and
// context failures return an error.
func (m *Manager) ProcessRun(ctx context.Context, name string) (Outcome, error) {
	start := m.clock.Now()
	log := slog.With("model", name)
	manifest := m.cfg.Stevdb.ManifestTable
	replace := m.cfg.Stevdb.ReplaceModels

	id, err := m.store.GetID(ctx, manifest, name)
	if err != nil {
		return nil, err
	}
	if id == run.NoID {
		log.Info("run has no manifest id, skipping")
		return SkippedMissingManifestID{Name: name}, nil
	}
	log = log.With("id", id)

	stages := m.cfg.TrackedStages()
	present := make(map[run.Stage]bool, len(stages))
	all := len(stages) > 0
	for _, stage := range stages {
		p, err := m.store.ModelPresent(ctx, m.cfg.Table(stage), id)
		if err != nil {
			return nil, err
		}
		present[stage] = p
		all = all && p
	}
	if all && !replace {
		log.Info("run already in database, skipping")
		m.ledger.Add(name)
		return SkippedDuplicate{Name: name, ID: id}, nil
	}

	rec, err := run.Load(run.Identity{Name: name, ID: id, Dir: m.listing.DirOf(name)}, m.runOptions(), m.classifier)
	if err != nil {
		return m.incomplete(log, name, err.Error()), nil
	}
	if err := rec.Missing(); err != nil {
		return m.incomplete(log, name, err.Error()), nil
	}
	status, err := rec.TerminationCode()
	if err != nil {
		return m.incomplete(log, name, err.Error()), nil
	}
	if !status.Finished() {
		return m.incomplete(log, name, "no termination code"), nil
	}

	if m.cfg.Stevdb.TrackCEPhase {
		if _, err := rec.CommonEnvelope(m.columns.CE); errors.Is(err, run.ErrNotImplemented) {
			log.Info("common-envelope phase requested but not implemented, skipping")
			return SkippedUnimplemented{Name: name, Feature: FeatureCEPhase}, nil
		}
	}

	var records []run.StageRecord
	for _, stage := range stages {
		r, err := m.extract(rec, stage)
		switch {
		case errors.Is(err, run.ErrNoCoreCollapse):
			log.Info("run did not reach core collapse", "stage", stage)
			continue
		case err != nil:
			return m.incomplete(log, name, err.Error()), nil
		}
		records = append(records, r)
	}

	rows := make(map[run.Stage]int, len(records))
	created := map[string]*store.Schema{}
	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, r := range records {
			n, err := m.persist(ctx, tx, r, present[r.Stage()], created)
			if err != nil {
				return err
			}
			rows[r.Stage()] = n
		}
		return tx.UpdateModelStatus(ctx, manifest, name, store.StatusCompleted)
	})
	if err != nil {
		return nil, fmt.Errorf("persist %s: %w", name, err)
	}
	for _, sc := range created {
		m.session.remember(sc)
	}

	m.ledger.Add(name)
	log.Info("run ingested", "status", status.String(), "elapsed", m.clock.Now().Sub(start))
	return Ingested{Name: name, ID: id, Rows: rows}, nil
}

func (m *Manager) incomplete(log *slog.Logger, name, reason string) Outcome {
	log.Info("run incomplete, skipping", "reason", reason)
	return SkippedIncomplete{Name: name, Reason: reason}
}

func (m *Manager) runOptions() run.Options {
	opts := m.cfg.RunOptions()
	opts.RunsDir = m.listing.Dir
	return opts
}

func (m *Manager) extract(rec *run.Record, stage run.Stage) (run.StageRecord, error) {
	cols := m.columns.For(stage)
	switch stage {
	case run.StageInitials:
		return rec.Initials(cols)
	case run.StageFinals:
		return rec.Finals(cols)
	case run.StageCoreCollapse:
		return rec.CoreCollapse(cols)
	case run.StageXRB:
		return rec.XRBPhase(cols)
	default:
		return nil, fmt.Errorf("stage %s: %w", stage, run.ErrNotImplemented)
	}
}

// persist writes one stage record and returns the number of rows written.
// A stage already present is replaced in replace mode and left alone
// otherwise.
func (m *Manager) persist(ctx context.Context, tx *store.Tx, r run.StageRecord, present bool, created map[string]*store.Schema) (int, error) {
	table := m.cfg.Table(r.Stage())
	row := r.Row()
	log := slog.With("model_id", r.ID(), "table", table)

	switch rec := r.(type) {
	case run.Finals:
		if row.HasNull() {
			log.Info("finals have missing values, not stored", "columns", row.NullColumns())
			return 0, nil
		}
	case run.XRBPhase:
		if rec.Rows == 0 {
			log.Info("no XRB phase found, not stored")
			return 0, nil
		}
	}

	if present && !m.cfg.Stevdb.ReplaceModels {
		return 0, nil
	}

	if err := m.ensureTable(ctx, tx, table, row, created); err != nil {
		return 0, err
	}

	if present {
		log.Debug("replacing stage record")
		return tx.UpdateRecord(ctx, table, r.ID(), row)
	}
	log.Debug("inserting stage record")
	return tx.InsertRecord(ctx, table, row)
}

// ensureTable creates table on its first use in the session, and widens it
// when a row brings columns the table lacks.
func (m *Manager) ensureTable(ctx context.Context, tx *store.Tx, table string, row run.Row, created map[string]*store.Schema) error {
	known, ok := created[table]
	if !ok {
		known, ok = m.session.Schema(table)
	}
	if ok && covers(known, row) {
		return nil
	}

	schema, err := store.InferSchema(table, row)
	if err != nil {
		return err
	}
	if err := tx.CreateTable(ctx, schema); err != nil {
		return err
	}
	if ok {
		schema = merge(known, schema)
	}
	created[table] = schema
	return nil
}

func covers(s *store.Schema, row run.Row) bool {
	for _, c := range row {
		if !s.Has(c.Name) {
			return false
		}
	}
	return true
}

func merge(a, b *store.Schema) *store.Schema {
	out := &store.Schema{Table: a.Table, Columns: append([]store.Column(nil), a.Columns...)}
	for _, c := range b.Columns {
		if !out.Has(c.Name) {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// PollReport summarizes one poll.
type PollReport struct {
	Session string
	Listed  int
	Pending int

	Ingested          int
	MissingManifestID int
	Incomplete        int
	Duplicate         int
	Unimplemented     int
	Failed            int

	Elapsed time.Duration
}

func (r *PollReport) count(o Outcome) {
	switch o.Kind() {
	case KindIngested:
		r.Ingested++
	case KindMissingManifestID:
		r.MissingManifestID++
	case KindIncomplete:
		r.Incomplete++
	case KindDuplicate:
		r.Duplicate++
	case KindUnimplemented:
		r.Unimplemented++
	}
}

// Poll computes the delta and processes every pending run in order.
// A run that fails with a database error is logged and counted; the poll
// goes on with the next run.
func (m *Manager) Poll(ctx context.Context) (PollReport, error) {
	report := PollReport{Session: m.session.ID}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	start := m.clock.Now()

	work, err := m.Delta()
	if err != nil {
		return report, err
	}
	report.Listed = len(m.listing.Names)
	report.Pending = len(work)
	m.polls++

	var bar *progressBar
	if m.progress != nil && len(work) > 1 {
		bar = newProgressBar(m.progress, len(work))
		defer bar.finish()
	}

	for i, name := range work {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := m.ProcessRun(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			slog.Error("failed to process run", "model", name, "error", err)
			report.Failed++
		} else {
			slog.Debug("run processed", "outcome", outcome.Kind().String(), "detail", outcome.String())
			report.count(outcome)
		}
		if bar != nil {
			bar.update(i + 1)
		}
	}

	report.Elapsed = m.clock.Now().Sub(start)
	if report.Pending > 0 {
		slog.Info("poll done",
			"poll", m.polls,
			"pending", report.Pending,
			"ingested", report.Ingested,
			"incomplete", report.Incomplete,
			"failed", report.Failed,
			"elapsed", report.Elapsed,
		)
	}
	return report, nil
}

// Watch polls until ctx is cancelled, sleeping waiting_time_in_sec between
// polls. It returns nil on cancellation and an error only when the runs
// directory can no longer be trusted.
func (m *Manager) Watch(ctx context.Context) error {
	interval := m.cfg.PollInterval()
	for {
		report, err := m.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return m.stop()
			}
			return err
		}
		if m.observer != nil {
			m.observer(report)
		}
		if report.Pending == 0 {
			slog.Info("waiting for new runs", "interval", interval, "handled", m.ledger.Len())
		}

		select {
		case <-ctx.Done():
			return m.stop()
		case <-m.clock.After(interval):
		}
	}
}

func (m *Manager) stop() error {
	slog.Info("watch stopped",
		"session", m.session.ID,
		"uptime", m.session.Uptime(m.clock.Now()).Round(time.Second),
		"polls", m.polls,
		"handled", m.ledger.Len(),
	)
	return nil
}
