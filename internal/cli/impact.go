package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specloom/loom/internal/graph"
)

// NewImpactCommand creates the impact command.
func NewImpactCommand(rootOpts *RootOptions) *cobra.Command {
	var changeType string

	cmd := &cobra.Command{
		Use:   "impact <spec-file> <kind> <name>",
		Short: "Show everything affected by changing one element",
		Long: `Walks the dependency graph backwards from an element ("entity Order",
"function placeOrder", ...) and reports every dependent. With
--change delete, dependent functions and derived formulas are flagged
as breaking.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpact(rootOpts, args[0], graph.Kind(args[1]), args[2], changeType, cmd)
		},
	}

	cmd.Flags().StringVar(&changeType, "change", "modify", "change type (modify|delete)")

	return cmd
}

func runImpact(opts *RootOptions, specPath string, kind graph.Kind, name, changeType string, cmd *cobra.Command) error {
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
	impact, err := g.AnalyzeImpact(kind, name, changeType)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknown, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.JSON(impact)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Impact of %s on %s %s\n", changeType, kind, name)
	fmt.Fprintf(w, "  entities:   %s\n", joinOrNone(impact.Entities))
	fmt.Fprintf(w, "  functions:  %s\n", joinOrNone(impact.Functions))
	fmt.Fprintf(w, "  derived:    %s\n", joinOrNone(impact.Derived))
	fmt.Fprintf(w, "  scenarios:  %s\n", joinOrNone(impact.Scenarios))
	fmt.Fprintf(w, "  invariants: %s\n", joinOrNone(impact.Invariants))
	if len(impact.Breaking) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d breaking change(s):\n", len(impact.Breaking))
		for _, b := range impact.Breaking {
			fmt.Fprintf(w, "  %s: %s\n", b.Target, b.Reason)
		}
	}
	return nil
}
