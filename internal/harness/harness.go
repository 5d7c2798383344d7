// Package harness provides a conformance harness for the validator.
//
// Fixtures under testdata/specs are validated and their findings rendered
// as a text report, which is compared byte for byte against golden files
// under testdata/golden. Validation output is deterministic, so the report
// needs no normalization beyond the rendering itself.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness

import (
	"fmt"
	"strings"

	"github.com/specloom/loom/internal/validator"
)

// Report renders a validation result as a stable text report.
func Report(name string, res *validator.Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "spec: %s\n", name)
	fmt.Fprintf(&b, "valid: %t\n", res.Valid)

	if len(res.Errors) > 0 {
		b.WriteString("\nerrors:\n")
		for _, e := range res.Errors {
			b.WriteString("  " + renderFinding(e) + "\n")
		}
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\nwarnings:\n")
		for _, e := range res.Warnings {
			b.WriteString("  " + renderFinding(e) + "\n")
		}
	}
	return []byte(b.String())
}

func renderFinding(e validator.Error) string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}
