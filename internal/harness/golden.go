package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/specloom/loom/internal/ir"
	"github.com/specloom/loom/internal/validator"
)

// CheckGolden compares a rendered result against testdata/golden/{name}.golden.
func CheckGolden(t *testing.T, name string, res *validator.Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Report(name, res))
}

// RunSpecGolden validates one fixture and compares its report against the
// golden file named after the fixture.
func RunSpecGolden(t *testing.T, specPath string) {
	t.Helper()

	data, err := os.ReadFile(specPath)
	require.NoError(t, err)
	doc, err := ir.Decode(data)
	require.NoError(t, err)

	name := strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))
	CheckGolden(t, name, validator.New().Validate(doc))
}
