package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specloom/loom/internal/graph"
)

// NewSliceCommand creates the slice command.
func NewSliceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slice <spec-file> <function>",
		Short: "Show the minimal spec slice for one function",
		Long: `Computes the subset of a spec needed to implement one function: every
entity and derived formula it transitively touches, the scenarios that
test it, and the invariants constraining those entities.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlice(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runSlice(opts *RootOptions, specPath, functionName string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := loadOrFail(formatter, specPath)
	if err != nil {
		return err
	}

	g := graph.Build(doc)
	slice, err := g.GetSlice(functionName)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknown, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.JSON(slice)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Slice for %s\n", slice.Function)
	fmt.Fprintf(w, "  entities:   %s\n", joinOrNone(slice.Entities))
	fmt.Fprintf(w, "  derived:    %s\n", joinOrNone(slice.Derived))
	fmt.Fprintf(w, "  scenarios:  %s\n", joinOrNone(slice.Scenarios))
	fmt.Fprintf(w, "  invariants: %s\n", joinOrNone(slice.Invariants))
	return nil
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
