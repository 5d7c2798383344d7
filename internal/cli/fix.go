package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specloom/loom/internal/fix"
	"github.com/specloom/loom/internal/patch"
	"github.com/specloom/loom/internal/validator"
)

// FixReport bundles the proposals the fix command emits.
type FixReport struct {
	Valid       bool             `json:"valid"`
	Patches     []patch.Op       `json:"patches"`
	Completions []fix.Suggestion `json:"completions"`
}

// NewFixCommand creates the fix command.
func NewFixCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <spec-file>",
		Short: "Propose patches for validation findings",
		Long: `Validates a spec document, generates JSON-Patch fixes for the findings
that have a known recipe, and suggests completions for structurally
required fields the document left out.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runFix(opts *RootOptions, specPath string, cmd *cobra.Command) error {
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

	result := validator.New().Validate(doc)
	report := FixReport{
		Valid:       result.Valid,
		Patches:     fix.GeneratePatches(result.Errors),
		Completions: fix.SuggestCompletions(doc),
	}
	formatter.VerboseLog("%d finding(s), %d patch(es), %d completion(s)",
		len(result.Errors), len(report.Patches), len(report.Completions))

	if formatter.Format == "json" {
		return formatter.JSON(report)
	}

	w := formatter.Writer
	if len(report.Patches) == 0 && len(report.Completions) == 0 {
		fmt.Fprintln(w, "Nothing to fix")
		return nil
	}
	for _, op := range report.Patches {
		fmt.Fprintf(w, "%s %s\n", op.Op, op.Path)
		if op.Reason != "" {
			fmt.Fprintf(w, "  %s\n", op.Reason)
		}
	}
	for _, s := range report.Completions {
		fmt.Fprintf(w, "complete %s\n", s.Path)
		fmt.Fprintf(w, "  %s\n", s.Reason)
	}
	return nil
}
