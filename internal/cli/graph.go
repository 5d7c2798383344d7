package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specloom/loom/internal/graph"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "graph <spec-file>",
		Short:         "Export the dependency graph as a Mermaid diagram",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runGraph(opts *RootOptions, specPath string, cmd *cobra.Command) error {
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

	diagram := graph.Build(doc).Mermaid()
	if formatter.Format == "json" {
		return formatter.JSON(map[string]string{"mermaid": diagram})
	}

	fmt.Fprint(formatter.Writer, diagram)
	return nil
}
