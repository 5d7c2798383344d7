package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specloom/loom/internal/validator"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-file>",
		Short: "Validate a spec document",
		Long: `Runs every semantic check over a spec document: references, expression
structure, state machines, workflows, security, policies, and constraints.

Errors make the document invalid; warnings are reported but do not.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specPath string, cmd *cobra.Command) error {
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

	formatter.VerboseLog("Validating %s", specPath)
	result := validator.New().Validate(doc)

	if formatter.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
		if !result.Valid {
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
		}
		return nil
	}

	return renderValidationText(formatter, result)
}

func renderValidationText(formatter *OutputFormatter, result *validator.Result) error {
	w := formatter.Writer

	if result.Valid {
		fmt.Fprintln(w, "✓ Spec valid")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", renderFinding(e))
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d warning(s):\n", len(result.Warnings))
		for _, e := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", renderFinding(e))
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func renderFinding(e validator.Error) string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}
