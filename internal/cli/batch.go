package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prepop/internal/batch"
	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/kind"
)

// BatchOptions holds flags for the load and unload commands.
type BatchOptions struct {
	*RootOptions
	Database string
	Kinds    string
}

// FixtureResult is one fixture's outcome.
type FixtureResult struct {
	Fixture string          `json:"fixture"`
	Outcome fixture.Outcome `json:"outcome"`
}

// FailureResult names the fixture that aborted a load.
type FailureResult struct {
	Fixture    string `json:"fixture"`
	Dependency string `json:"dependency"`
}

// BatchResult is the JSON form of a batch report.
type BatchResult struct {
	BatchID    string          `json:"batch_id"`
	Action     string          `json:"action"`
	OK         bool            `json:"ok"`
	RolledBack bool            `json:"rolled_back"`
	Fixtures   []FixtureResult `json:"fixtures"`
	Failure    *FailureResult  `json:"failure,omitempty"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return newBatchCommand(rootOpts, batch.ActionLoad, "Load fixtures into the database",
		`Load the fixtures declared in one or more modules, in declaration order,
inside a single transaction. Fixtures whose record already exists are left
alone.

Exit codes:
  0 - Batch committed
  1 - A fixture depends on a record that does not exist; nothing was written
  2 - Command error (bad kinds or modules, database error)

Examples:
  prepop load --db ./dev.db --kinds kinds.cue teams.yaml users.yaml
  prepop load --db ./dev.db --kinds ./kinds --format json fixtures.jsonc`)
}

// NewUnloadCommand creates the unload command.
func NewUnloadCommand(rootOpts *RootOptions) *cobra.Command {
	return newBatchCommand(rootOpts, batch.ActionUnload, "Unload fixtures from the database",
		`Unload the fixtures declared in one or more modules inside a single
transaction. All fixtures are resolved before the first record is deleted,
so their order does not matter. Fixtures without a record are skipped.

Exit codes:
  0 - Batch committed
  2 - Command error (bad kinds or modules, database error)

Examples:
  prepop unload --db ./dev.db --kinds kinds.cue teams.yaml users.yaml`)
}

func newBatchCommand(rootOpts *RootOptions, action batch.Action, short, long string) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           string(action) + " <module>...",
		Short:         short,
		Long:          long,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts, action, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kinds, "kinds", "", "CUE kinds file or directory (required)")
	_ = cmd.MarkFlagRequired("kinds")

	return cmd
}

func runBatch(ctx context.Context, opts *BatchOptions, action batch.Action, modules []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadKinds(opts.Kinds, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	kinds, err := kind.NewSet(loadResult.Kinds, st)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	fixtures, err := declareFixtures(kinds, modules)
	if err != nil {
		return outputLoadErrors(formatter, []error{err})
	}

	batchOpts := []batch.Option{batch.WithLogger(formatter.Logger())}
	if opts.batchIDs != nil {
		batchOpts = append(batchOpts, batch.WithBatchIDGenerator(opts.batchIDs))
	}
	orch := batch.New(st, batchOpts...)

	var report *batch.Report
	switch action {
	case batch.ActionLoad:
		report, err = orch.Load(ctx, fixtures)
	case batch.ActionUnload:
		report, err = orch.Unload(ctx, fixtures)
	}
	if err != nil {
		code := ErrCodeBatchFailed
		if fixture.IsProgrammingError(err) {
			code = ErrCodeGeneric
		}
		var details interface{}
		if report != nil {
			details = batchResult(report)
		}
		return formatter.Fail(ExitCommandError, code, err.Error(), details)
	}

	if err := outputReport(formatter, report); err != nil {
		return err
	}
	if report.Failure != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s requires %s",
			ErrCodeUnresolved, report.Failure.Fixture, report.Failure.Dependency))
	}
	return nil
}

// batchResult converts a report to its JSON form. A nil report gives nil.
func batchResult(r *batch.Report) *BatchResult {
	if r == nil {
		return nil
	}
	res := &BatchResult{
		BatchID:    r.BatchID,
		Action:     string(r.Action),
		OK:         r.OK(),
		RolledBack: r.RolledBack,
		Fixtures:   make([]FixtureResult, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		res.Fixtures = append(res.Fixtures, FixtureResult{Fixture: e.Fixture.String(), Outcome: e.Outcome})
	}
	if r.Failure != nil {
		res.Failure = &FailureResult{
			Fixture:    r.Failure.Fixture.String(),
			Dependency: r.Failure.Dependency.String(),
		}
	}
	return res
}

// outputReport prints a batch report.
func outputReport(formatter *OutputFormatter, r *batch.Report) error {
	res := batchResult(r)

	if formatter.JSON() {
		if r.Failure != nil {
			return formatter.Error(ErrCodeUnresolved,
				fmt.Sprintf("failed to resolve %s", res.Failure.Fixture), res)
		}
		return formatter.Success(res)
	}

	w := formatter.Writer
	status := "committed"
	if r.RolledBack {
		status = "rolled back"
	}
	fmt.Fprintf(w, "Batch %s (%s): %s\n", res.BatchID, res.Action, status)
	for _, f := range res.Fixtures {
		fmt.Fprintf(w, "  %-8s %s\n", f.Outcome, f.Fixture)
	}
	fmt.Fprintln(w)

	if res.Failure != nil {
		fmt.Fprintf(w, "Failed to resolve %s: it requires %s, which does not exist\n",
			res.Failure.Fixture, res.Failure.Dependency)
		return nil
	}

	changed := r.Count(fixture.OutcomeCreated)
	verb := "created"
	if r.Action == batch.ActionUnload {
		changed = r.Count(fixture.OutcomeDeleted)
		verb = "deleted"
	}
	fmt.Fprintf(w, "%d %s, %d unchanged\n", changed, verb, r.Count(fixture.OutcomeNoop))
	return nil
}

// outputLoadErrors outputs kind or declaration errors.
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		infos := make([]ErrorInfo, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			infos[i] = ErrorInfo{Code: code, Message: message}
		}
		_ = formatter.Error(infos[0].Code, infos[0].Message, infos)
		return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
	}

	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		code, message := parseLoadError(err)
		fmt.Fprintf(formatter.Writer, "Error [%s]: %s\n", code, message)
	}

	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
