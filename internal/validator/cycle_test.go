package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedCycleSingleWarning(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"a": {"entity": "Order", "formula": {"type": "call", "name": "b"}},
			"b": {"entity": "Order", "formula": {"type": "call", "name": "a"}}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Warnings, CodeDerivedCycle)
	require.Len(t, matches, 1, "one warning for the whole cluster, not one per member")
	assert.Equal(t, "derived", matches[0].Path)
	assert.Equal(t, "Circular dependency detected: a -> b -> a", matches[0].Message)
	assert.True(t, res.Valid)
}

func TestDerivedSelfCycle(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"loop": {"entity": "Order", "formula": {"type": "call", "name": "loop"}}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Warnings, CodeDerivedCycle)
	require.Len(t, matches, 1)
	assert.Equal(t, "Circular dependency detected: loop -> loop", matches[0].Message)
}

func TestDerivedAcyclicChain(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"net":   {"entity": "Order", "formula": {"type": "ref", "path": "Order.total"}},
			"gross": {"entity": "Order", "formula": {"type": "binary", "op": "mul",
				"left": {"type": "call", "name": "net"},
				"right": {"type": "literal", "value": 1.1}}}
		}
	}`)

	res := New().Validate(doc)
	assert.Empty(t, errorsWithCode(res.Warnings, CodeDerivedCycle))
	assert.True(t, res.Valid)
}

func TestDerivedCycleThroughNestedExpressions(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"total": {"type": "float"}}}},
		"derived": {
			"x": {"entity": "Order", "formula": {"type": "binary", "op": "add",
				"left": {"type": "literal", "value": 1},
				"right": {"type": "call", "name": "y"}}},
			"y": {"entity": "Order", "formula": {"type": "unary", "op": "neg",
				"expr": {"type": "call", "name": "x"}}}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Warnings, CodeDerivedCycle)
	require.Len(t, matches, 1)
}
