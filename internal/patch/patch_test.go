package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReplaceLeavesInputUntouched(t *testing.T) {
	doc := map[string]any{
		"entities": map[string]any{
			"Order": map[string]any{"fields": map[string]any{}},
		},
	}

	out, err := Apply(doc, []Op{
		{Op: OpReplace, Path: "/entities/Order/fields", Value: map[string]any{"id": "uuid"}},
	})
	require.NoError(t, err)

	patched := out["entities"].(map[string]any)["Order"].(map[string]any)
	assert.Equal(t, map[string]any{"id": "uuid"}, patched["fields"])

	original := doc["entities"].(map[string]any)["Order"].(map[string]any)
	assert.Empty(t, original["fields"])
}

func TestApplyAddAndRemove(t *testing.T) {
	doc := map[string]any{"meta": map[string]any{"id": "x", "stale": true}}

	out, err := Apply(doc, []Op{
		{Op: OpAdd, Path: "/meta/version", Value: "1.0"},
		{Op: OpRemove, Path: "/meta/stale"},
	})
	require.NoError(t, err)

	meta := out["meta"].(map[string]any)
	assert.Equal(t, "1.0", meta["version"])
	assert.NotContains(t, meta, "stale")
}

func TestApplyArrayIndex(t *testing.T) {
	doc := map[string]any{
		"transitions": []any{
			map[string]any{"to": "a"},
			map[string]any{"to": "b"},
		},
	}

	out, err := Apply(doc, []Op{
		{Op: OpReplace, Path: "/transitions/1/to", Value: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "c", out["transitions"].([]any)[1].(map[string]any)["to"])
}

func TestApplyErrors(t *testing.T) {
	doc := map[string]any{"a": map[string]any{}, "list": []any{1}}

	_, err := Apply(doc, []Op{{Op: OpReplace, Path: "/a/missing", Value: 1}})
	require.Error(t, err)

	_, err = Apply(doc, []Op{{Op: OpRemove, Path: "/a/missing"}})
	require.Error(t, err)

	_, err = Apply(doc, []Op{{Op: OpAdd, Path: "/list/5", Value: 1}})
	require.Error(t, err)

	_, err = Apply(doc, []Op{{Op: "move", Path: "/a"}})
	require.Error(t, err)

	_, err = Apply(doc, []Op{{Op: OpAdd, Path: "no-slash", Value: 1}})
	require.Error(t, err)
}

func TestApplyEmptyOpsIsIdentity(t *testing.T) {
	doc := map[string]any{"k": []any{map[string]any{"n": 1}}}
	out, err := Apply(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestFromDotPath(t *testing.T) {
	assert.Equal(t, "/functions/ship/pre/0/expr", FromDotPath("functions.ship.pre[0].expr"))
	assert.Equal(t, "/derived/total/formula", FromDotPath("derived.total.formula"))
	assert.Equal(t, "", FromDotPath(""))
}

func TestPointerEscaping(t *testing.T) {
	assert.Equal(t, "/a~1b/c~0d", Pointer("a/b", "c~d"))
}
