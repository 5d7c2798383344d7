package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specloom/loom/internal/ir"
	"github.com/specloom/loom/internal/patch"
)

func decode(t *testing.T, raw string) *ir.Document {
	t.Helper()
	doc, err := ir.Decode([]byte(raw))
	require.NoError(t, err)
	return doc
}

func errorsWithCode(findings []Error, code string) []Error {
	var out []Error
	for _, e := range findings {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

func TestValidateCleanDocument(t *testing.T) {
	doc := decode(t, `{
		"meta": {"id": "orders"},
		"entities": {
			"Order": {"fields": {
				"id": {"type": "uuid", "required": true},
				"total": {"type": "float"},
				"status": {"type": {"enum": ["pending", "paid"]}}
			}}
		},
		"functions": {
			"payOrder": {
				"entity": "Order",
				"input": {"orderId": {"type": "uuid"}},
				"pre": [{"expr": {"type": "binary", "op": "eq", "left": {"type": "ref", "path": "Order.status"}, "right": {"type": "literal", "value": "pending"}}}],
				"post": [{"action": {"update": "Order", "set": {"status": {"type": "literal", "value": "paid"}}}}]
			}
		},
		"subscriptions": {
			"onPay": {"event": "orderPaid", "handler": "payOrder"}
		},
		"events": {"orderPaid": {}}
	}`)

	res := New().Validate(doc)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateMissingDiscriminator(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"orderTotal": {"entity": "Order", "formula": {"value": 1}}
		}
	}`)

	res := New().Validate(doc)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "derived.orderTotal.formula", res.Errors[0].Path)
	assert.Contains(t, res.Errors[0].Message, "discriminator")
	assert.Equal(t, CodeExprInvalid, res.Errors[0].Code)
}

func TestValidateUnknownVariant(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"orderTotal": {"entity": "Order", "formula": {"type": "frobnicate"}}
		}
	}`)

	res := New().Validate(doc)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "Unknown expression type 'frobnicate'")
}

func TestValidateRequiredAndUnexpectedFields(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"orderTotal": {
				"entity": "Order",
				"formula": {"type": "binary", "op": "add", "left": {"type": "literal", "value": 1}, "bogus": true}
			}
		}
	}`)

	res := New().Validate(doc)
	messages := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		messages[i] = e.Message
	}
	assert.Contains(t, messages, "Expression type 'binary' missing required field 'right'")
	assert.Contains(t, messages, "Expression type 'binary' has unexpected field 'bogus'")
}

func TestValidateInvalidOperator(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"orderTotal": {
				"entity": "Order",
				"formula": {"type": "binary", "op": "xor", "left": {"type": "literal", "value": 1}, "right": {"type": "literal", "value": 2}}
			}
		}
	}`)

	res := New().Validate(doc)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "derived.orderTotal.formula.op", res.Errors[0].Path)
	assert.Contains(t, res.Errors[0].Message, "Invalid operator 'xor'")
}

func nestedUnary(levels int) map[string]any {
	node := map[string]any{"type": "literal", "value": true}
	for i := 0; i < levels; i++ {
		node = map[string]any{"type": "unary", "op": "not", "expr": node}
	}
	return node
}

func TestValidateDepthGuard(t *testing.T) {
	// Below the cap: no findings.
	shallow := validateExprNode(nestedUnary(MaxDepth), "formula", 0)
	assert.Empty(t, shallow)

	// Beyond the cap: exactly one VAL-DEPTH, nothing else.
	deep := validateExprNode(nestedUnary(MaxDepth+10), "formula", 0)
	require.Len(t, deep, 1)
	assert.Equal(t, CodeDepthExceeded, deep[0].Code)
}

func TestValidateUnknownFieldType(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {
			"total": {"type": "decimal"},
			"tags": {"type": {"list": "strnig"}}
		}}}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Errors, CodeValueNotInSet)
	require.Len(t, matches, 2)
	assert.Equal(t, "entities.Order.fields.tags", matches[0].Path)
	assert.Equal(t, "strnig", matches[0].Actual)
	assert.Equal(t, "entities.Order.fields.total", matches[1].Path)
	assert.Contains(t, matches[1].Message, "Unknown field type 'decimal'")
	assert.Contains(t, matches[1].ValidOptions, "timestamp")
}

func TestValidateResultSplitsWarnings(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"id": {"type": "uuid"}}}},
		"functions": {"orphanFn": {"entity": "Order"}}
	}`)

	res := New().Validate(doc)
	assert.True(t, res.Valid, "warnings must not block validity")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, CodeUnusedFunction, res.Warnings[0].Code)
	assert.Equal(t, "functions.orphanFn", res.Warnings[0].Path)
}

func TestValidateDeterministicAcrossRuns(t *testing.T) {
	raw := `{
		"entities": {
			"B": {"fields": {"x": {"type": {"ref": "Missing1"}}}},
			"A": {"fields": {"y": {"type": {"ref": "Missing2"}}}},
			"C": {"fields": {"z": {"type": {"ref": "Missing3"}}}}
		}
	}`

	first := New().Validate(decode(t, raw))
	second := New().Validate(decode(t, raw))
	uncached := New(WithoutCache()).Validate(decode(t, raw))

	assert.Equal(t, first, second)
	assert.Equal(t, first, uncached)
	require.Len(t, first.Errors, 3)
	assert.Equal(t, "entities.A.fields.y", first.Errors[0].Path)
	assert.Equal(t, "entities.B.fields.x", first.Errors[1].Path)
	assert.Equal(t, "entities.C.fields.z", first.Errors[2].Path)
}

func TestValidateChangesEmptyPatchMatchesValidate(t *testing.T) {
	tree := map[string]any{
		"entities": map[string]any{
			"Order": map[string]any{
				"fields": map[string]any{"ref": map[string]any{"type": map[string]any{"ref": "Nowhere"}}},
			},
		},
	}

	v := New()
	doc, err := ir.FromValue(tree)
	require.NoError(t, err)
	direct := v.Validate(doc)

	previewed, patched, err := v.ValidateChanges(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, direct, previewed)
	assert.Equal(t, tree, patched)
}

func TestValidateChangesAppliesPatch(t *testing.T) {
	tree := map[string]any{
		"entities": map[string]any{
			"Order": map[string]any{
				"fields": map[string]any{"customer": map[string]any{"type": map[string]any{"ref": "Customer"}}},
			},
		},
	}

	v := New()
	res, _, err := v.ValidateChanges(tree, []patch.Op{
		{Op: patch.OpAdd, Path: "/entities/Customer", Value: map[string]any{"fields": map[string]any{}}},
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// Original tree still fails on its own.
	doc, err := ir.FromValue(tree)
	require.NoError(t, err)
	assert.False(t, v.Validate(doc).Valid)
}

func TestValidateChangesBadPatch(t *testing.T) {
	_, _, err := New().ValidateChanges(map[string]any{}, []patch.Op{
		{Op: patch.OpRemove, Path: "/missing"},
	})
	require.Error(t, err)
}

func TestCacheStats(t *testing.T) {
	v := New()
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": {"enum": ["a"]}}}}},
		"derived": {
			"d1": {"entity": "Order", "formula": {"type": "ref", "path": "Order.status"}},
			"d2": {"entity": "Order", "formula": {"type": "ref", "path": "Order.status"}}
		}
	}`)
	v.Validate(doc)
	stats := v.Stats()
	assert.Greater(t, stats.Hits, 0)
	assert.Greater(t, stats.Misses, 0)

	assert.Equal(t, CacheStats{}, New(WithoutCache()).Stats())
}
