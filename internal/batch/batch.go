package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/store"
)

// Transactor runs fn inside one atomic scope. The context passed to fn
// carries the scope; an error from fn rolls it back. Implemented by
// *store.Store.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Orchestrator sequences fixture loads and unloads inside one transaction
// per call.
type Orchestrator struct {
	tx     Transactor
	logger *slog.Logger
	ids    store.IDGenerator
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Each batch logs through a child carrying
// batch_id and action.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithBatchIDGenerator sets the generator for batch ids.
// Default: store.UUIDv7Generator.
func WithBatchIDGenerator(g store.IDGenerator) Option {
	return func(o *Orchestrator) {
		o.ids = g
	}
}

// New creates an Orchestrator that opens its transactions on tx.
func New(tx Transactor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tx:     tx,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    store.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) begin(action Action, n int) (*Report, *slog.Logger) {
	report := &Report{BatchID: o.ids.Generate(), Action: action}
	logger := o.logger.With("batch_id", report.BatchID, "action", string(action))
	logger.Debug("batch started", "fixtures", n)
	return report, logger
}

// Load loads fixtures in order inside one transaction.
//
// The first fixture with an unresolved dependency aborts the batch: the
// transaction rolls back, Report.Failure names the fixture and its missing
// dependency, and the returned error is nil. Any other error also rolls back
// and is returned.
func (o *Orchestrator) Load(ctx context.Context, fixtures []*fixture.Fixture) (*Report, error) {
	report, logger := o.begin(ActionLoad, len(fixtures))

	err := o.tx.InTx(ctx, func(ctx context.Context) error {
		for _, f := range fixtures {
			out, err := f.Load(ctx)
			if err != nil {
				var ue *fixture.UnresolvedDependencyError
				if errors.As(err, &ue) {
					report.Failure = &Failure{Fixture: ue.Fixture, Dependency: ue.Dependency}
					logger.Info("failed to resolve fixture",
						"fixture", ue.Fixture.String(),
						"dependency", ue.Dependency.String())
				}
				return err
			}

			report.Entries = append(report.Entries, Entry{Fixture: f, Outcome: out})
			if out == fixture.OutcomeCreated {
				logger.Info("loaded fixture", "fixture", f.String())
			} else {
				logger.Debug("fixture already exists, nothing to load", "fixture", f.String())
			}
		}
		return nil
	})

	return o.finish(report, logger, err)
}

// Unload unloads fixtures in order inside one transaction.
//
// Every fixture is resolved before the first deletion. Unresolvable
// fixtures do not abort the batch; only errors do, and those roll back.
func (o *Orchestrator) Unload(ctx context.Context, fixtures []*fixture.Fixture) (*Report, error) {
	report, logger := o.begin(ActionUnload, len(fixtures))

	err := o.tx.InTx(ctx, func(ctx context.Context) error {
		for _, f := range fixtures {
			if err := f.Resolve(ctx); err != nil {
				return err
			}
		}

		for _, f := range fixtures {
			out, err := f.Unload(ctx)
			if err != nil {
				return err
			}

			report.Entries = append(report.Entries, Entry{Fixture: f, Outcome: out})
			if out == fixture.OutcomeDeleted {
				logger.Info("unloaded fixture", "fixture", f.String())
			} else {
				logger.Debug("fixture does not exist, nothing to unload", "fixture", f.String())
			}
		}
		return nil
	})

	return o.finish(report, logger, err)
}

func (o *Orchestrator) finish(report *Report, logger *slog.Logger, err error) (*Report, error) {
	if err == nil {
		logger.Info("batch committed",
			"created", report.Count(fixture.OutcomeCreated),
			"deleted", report.Count(fixture.OutcomeDeleted),
			"unchanged", report.Count(fixture.OutcomeNoop))
		return report, nil
	}

	report.RolledBack = true
	if report.Failure != nil && fixture.IsUnresolved(err) {
		logger.Info("batch rolled back", "fixture", report.Failure.Fixture.String())
		return report, nil
	}
	logger.Error("batch rolled back", "error", err)
	return report, err
}
