package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prepop/internal/ir"
	"github.com/roach88/prepop/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - one kind only
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Long: `List the records in the database in insertion order.

Examples:
  prepop list --db ./dev.db
  prepop list --db ./dev.db --kind user --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "list records of this kind only")

	return cmd
}

func runList(ctx context.Context, opts *ListOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	records, err := st.ListRecords(ctx, opts.Kind)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to list records: %v", err), nil)
	}

	if formatter.JSON() {
		return formatter.Success(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No records found.")
		return nil
	}
	for _, rec := range records {
		if err := printRecord(formatter, rec); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d record(s)\n", len(records))
	return nil
}

func printRecord(formatter *OutputFormatter, rec store.Record) error {
	fields, err := ir.MarshalCanonical(rec.Fields)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.ID, err)
	}
	fmt.Fprintf(formatter.Writer, "%-4d %s  %s  %s\n", rec.Seq, rec.Kind, rec.ID, fields)
	return nil
}
