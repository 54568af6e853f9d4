package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/prepop/internal/declare"
	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/ir"
	"github.com/roach88/prepop/internal/kind"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Kinds string
}

// CheckResult is the outcome of a successful check.
type CheckResult struct {
	Kinds    []ir.KindSpec `json:"kinds"`
	Fixtures []string      `json:"fixtures"`
	Modules  int           `json:"modules"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <module>...",
		Short: "Check kinds and declaration modules without touching a database",
		Long: `Compile the kind declarations and parse every module, reporting all kind
errors and the first declaration error. References are linked and checked
for unknown labels and cycles; nothing is resolved or written.

Examples:
  prepop check --kinds kinds.cue teams.yaml users.yaml
  prepop check --kinds ./kinds --format json fixtures.jsonc`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kinds, "kinds", "", "CUE kinds file or directory (required)")
	_ = cmd.MarkFlagRequired("kinds")

	return cmd
}

func runCheck(opts *CheckOptions, modules []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadKinds(opts.Kinds, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	// No store: check never calls into storage.
	kinds, err := kind.NewSet(loadResult.Kinds, nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	fixtures, err := declareFixtures(kinds, modules)
	if err != nil {
		return outputLoadErrors(formatter, []error{err})
	}

	result := CheckResult{
		Kinds:    make([]ir.KindSpec, 0, len(loadResult.Kinds)),
		Fixtures: make([]string, 0, len(fixtures)),
		Modules:  len(modules),
	}
	for _, k := range loadResult.Kinds {
		result.Kinds = append(result.Kinds, k.Spec)
	}
	for _, f := range fixtures {
		result.Fixtures = append(result.Fixtures, f.String())
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "Kinds:")
	for _, spec := range result.Kinds {
		fmt.Fprintf(w, "  %s: identity [%s]", spec.Name, strings.Join(spec.Identity, ", "))
		if n := len(spec.Resolve); n > 0 {
			fmt.Fprintf(w, ", %d transform(s)", n)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Fixtures:")
	for _, f := range result.Fixtures {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Checked %d kind(s), %d fixture(s) in %d module(s)\n",
		len(result.Kinds), len(result.Fixtures), result.Modules)
	return nil
}

// declareFixtures reads modules into fixtures, mapping failures to
// LoadErrors.
func declareFixtures(kinds declare.Kinds, modules []string) ([]*fixture.Fixture, error) {
	fixtures, err := declare.LoadFiles(kinds, modules...)
	if err != nil {
		return nil, declarationError(err)
	}
	return fixtures, nil
}
