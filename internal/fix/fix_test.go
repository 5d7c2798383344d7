package fix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specloom/loom/internal/ir"
	"github.com/specloom/loom/internal/patch"
	"github.com/specloom/loom/internal/validator"
)

func TestClosestMatchTiers(t *testing.T) {
	options := []string{"pending", "paid", "cancelled"}

	got, ok := ClosestMatch("PAID", options)
	require.True(t, ok)
	assert.Equal(t, "paid", got, "exact case-insensitive wins")

	got, _ = ClosestMatch("pend", options)
	assert.Equal(t, "pending", got, "prefix in either direction")

	got, _ = ClosestMatch("aid", options)
	assert.Equal(t, "paid", got, "substring in either direction")

	got, _ = ClosestMatch("zzz", options)
	assert.Equal(t, "pending", got, "first option is the unconditional fallback")

	_, ok = ClosestMatch("anything", nil)
	assert.False(t, ok)
}

func TestClosestMatchNormalizesUnicode(t *testing.T) {
	// "é" precomposed vs combining-accent spelling.
	got, ok := ClosestMatch("café", []string{"café", "bar"})
	require.True(t, ok)
	assert.Equal(t, "café", got)
}

func TestSuggestFixEnumMismatch(t *testing.T) {
	op := SuggestFix(validator.Error{
		Code:         validator.CodeTypeEnumMismatch,
		Path:         "derived.flag.formula.right.value",
		Actual:       "Draft",
		ValidOptions: []string{"draft", "open"},
	})
	require.NotNil(t, op)
	assert.Equal(t, patch.OpReplace, op.Op)
	assert.Equal(t, "/derived/flag/formula/right/value", op.Path)
	assert.Equal(t, "draft", op.Value)
	assert.Equal(t, "Replace 'Draft' with valid enum value 'draft'", op.Reason)
}

func TestSuggestFixReferenceField(t *testing.T) {
	op := SuggestFix(validator.Error{
		Code:         validator.CodeRefUnknownField,
		Path:         "derived.bad.formula",
		Actual:       "custommer",
		ValidOptions: []string{"customer", "total"},
	})
	require.NotNil(t, op)
	assert.Equal(t, patch.OpReplace, op.Op)
	assert.Equal(t, "/derived/bad/formula", op.Path)
	assert.Equal(t, "customer", op.Value)
}

func TestSuggestFixTransitionConflict(t *testing.T) {
	op := SuggestFix(validator.Error{
		Code: validator.CodeTransitionAmbiguous,
		Path: "stateMachines.flow.transitions[1]",
	})
	require.NotNil(t, op)
	assert.Equal(t, patch.OpAdd, op.Op)
	assert.Equal(t, "/stateMachines/flow/transitions/1/guard", op.Path)
	assert.Equal(t, map[string]any{"type": "literal", "value": true}, op.Value)
}

func TestSuggestFixUnknownCode(t *testing.T) {
	assert.Nil(t, SuggestFix(validator.Error{Code: validator.CodeSagaDuplicateStep}))
	assert.Nil(t, SuggestFix(validator.Error{Code: validator.CodeTypeEnumMismatch}))
}

func TestGeneratePatchesPrefersCarriedPatch(t *testing.T) {
	carried := &patch.Op{Op: patch.OpReplace, Path: "/a/b", Value: "x"}
	ops := GeneratePatches([]validator.Error{
		{Code: validator.CodeTypeEnumMismatch, AutoFixable: true, FixPatch: carried},
		{Code: validator.CodeDerivedCycle},
		{Code: validator.CodeRefUnknownField, Path: "entities.A", Actual: "f", ValidOptions: []string{"field"}},
	})
	require.Len(t, ops, 2)
	assert.Equal(t, *carried, ops[0])
	assert.Equal(t, "/entities/A", ops[1].Path)
}

func TestSuggestCompletions(t *testing.T) {
	doc, err := ir.Decode([]byte(`{
		"entities": {"Empty": {}},
		"derived": {"d": {"formula": {"type": "literal", "value": 1}}},
		"functions": {
			"ship": {"post": [{"action": {"update": "Order"}}]}
		},
		"stateMachines": {"flow": {"entity": "Order", "states": {"b": {}, "a": {}}}},
		"sagas": {"checkout": {"steps": [{"compensate": "undo"}]}}
	}`))
	require.NoError(t, err)

	byPath := map[string]Suggestion{}
	for _, s := range SuggestCompletions(doc) {
		byPath[s.Path] = s
	}

	assert.NotEmpty(t, byPath["/meta/id"].Value)
	assert.Equal(t, "1.0.0", byPath["/meta/version"].Value)
	assert.Equal(t, "My Specification", byPath["/meta/title"].Value)
	assert.Contains(t, byPath, "/entities/Empty/fields")
	assert.Equal(t, "string", byPath["/derived/d/returns"].Value)
	assert.Equal(t, "Entity", byPath["/derived/d/entity"].Value)
	assert.Equal(t, "Performs ship operation", byPath["/functions/ship/description"].Value)
	assert.Contains(t, byPath, "/functions/ship/input")
	assert.Equal(t,
		map[string]any{"type": "input", "name": "id"},
		byPath["/functions/ship/post/0/action/target"].Value)
	assert.Equal(t, "a", byPath["/stateMachines/flow/initial"].Value)
	assert.Equal(t, "step_action", byPath["/sagas/checkout/steps/0/forward"].Value)
	assert.Equal(t, "step_1", byPath["/sagas/checkout/steps/0/name"].Value)
}

func TestSuggestCompletionsCompleteDocIsQuiet(t *testing.T) {
	doc, err := ir.Decode([]byte(`{
		"meta": {"id": "orders", "version": "1.2.0", "title": "Orders"},
		"entities": {"Order": {"fields": {"id": {"type": "uuid"}}}},
		"functions": {"ship": {"description": "Ships an order", "input": {}}}
	}`))
	require.NoError(t, err)
	assert.Empty(t, SuggestCompletions(doc))
}
