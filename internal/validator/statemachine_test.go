package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachineUnknownTrigger(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "a",
				"states": {"a": {}, "b": {"final": true}},
				"transitions": [{"from": "a", "to": "b", "trigger_function": "missingFn"}]}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Errors, CodeTransitionTrigger)
	require.Len(t, matches, 1)
	assert.Equal(t, "stateMachines.flow.transitions[0]", matches[0].Path)
	assert.Contains(t, matches[0].Message, "Trigger 'missingFn' not found")
}

func TestStateMachineEventTriggerAccepted(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"events": {"orderShipped": {}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "a",
				"states": {"a": {}, "b": {"final": true}},
				"transitions": [{"from": "a", "to": "b", "trigger_function": "orderShipped"}]}
		}
	}`)

	res := New().Validate(doc)
	assert.Empty(t, errorsWithCode(res.Errors, CodeTransitionTrigger))
}

func TestStateMachineUnreachableState(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"functions": {"advance": {"entity": "Order"}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "A",
				"states": {"A": {}, "B": {"final": true}, "ORPHAN": {"final": true}},
				"transitions": [{"from": "A", "to": "B", "trigger_function": "advance"}]}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Warnings, CodeStateUnreachable)
	require.Len(t, matches, 1)
	assert.Equal(t, "Unreachable states: ORPHAN", matches[0].Message)
	assert.True(t, res.Valid, "reachability findings are warnings")
}

func TestStateMachineDeadEnd(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"functions": {"advance": {"entity": "Order"}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "a",
				"states": {"a": {}, "stuck": {}},
				"transitions": [{"from": "a", "to": "stuck", "trigger_function": "advance"}]}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Warnings, CodeStateDeadEnd)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Message, "stuck")
}

func TestStateMachineUndeclaredStates(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"functions": {"advance": {"entity": "Order"}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "ghost",
				"states": {"a": {"final": true}},
				"transitions": [{"from": "nowhere", "to": "elsewhere", "trigger_function": "advance"}]}
		}
	}`)

	res := New().Validate(doc)
	messages := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Initial state 'ghost' not defined in states")
	assert.Contains(t, messages, "Transition 'from' state 'nowhere' not defined")
	assert.Contains(t, messages, "Transition 'to' state 'elsewhere' not defined")
}

func TestTransitionConflictUnguarded(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"functions": {"decide": {"entity": "Order"}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "a",
				"states": {"a": {}, "b": {"final": true}, "c": {"final": true}},
				"transitions": [
					{"from": "a", "to": "b", "trigger_function": "decide"},
					{"from": "a", "to": "c", "trigger_function": "decide",
						"guard": {"type": "literal", "value": true}}
				]}
		}
	}`)

	res := New().Validate(doc)
	matches := errorsWithCode(res.Errors, CodeTransitionAmbiguous)
	require.Len(t, matches, 1)
	assert.Equal(t, "stateMachines.flow.transitions", matches[0].Path)
	assert.Equal(t, "2 transitions, 1 guarded", matches[0].Actual)
}

func TestTransitionConflictFullyGuardedPasses(t *testing.T) {
	// Guards are assumed mutually exclusive, not proven.
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"functions": {"decide": {"entity": "Order"}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "a",
				"states": {"a": {}, "b": {"final": true}, "c": {"final": true}},
				"transitions": [
					{"from": "a", "to": "b", "trigger_function": "decide",
						"guard": {"type": "literal", "value": true}},
					{"from": "a", "to": "c", "trigger_function": "decide",
						"guard": {"type": "literal", "value": false}}
				]}
		}
	}`)

	res := New().Validate(doc)
	assert.Empty(t, errorsWithCode(res.Errors, CodeTransitionAmbiguous))
}

func TestTransitionMultiFromConflicts(t *testing.T) {
	doc := decode(t, `{
		"entities": {"Order": {"fields": {"status": {"type": "string"}}}},
		"functions": {"decide": {"entity": "Order"}},
		"stateMachines": {
			"flow": {"entity": "Order", "field": "status", "initial": "a",
				"states": {"a": {}, "b": {}, "c": {"final": true}},
				"transitions": [
					{"from": ["a", "b"], "to": "c", "trigger_function": "decide"},
					{"from": "a", "to": "b", "trigger_function": "decide"}
				]}
		}
	}`)

	res := New().Validate(doc)
	// Only the (a, decide) group conflicts; (b, decide) has one member.
	matches := errorsWithCode(res.Errors, CodeTransitionAmbiguous)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Message, "from 'a'")
}
