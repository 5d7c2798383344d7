package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullDocument(t *testing.T) {
	doc, err := Decode([]byte(`{
		"meta": {"id": "orders", "version": "1.0", "title": "Orders"},
		"entities": {
			"Order": {
				"fields": {
					"id": {"type": "uuid", "required": true},
					"status": {"type": {"enum": ["pending", "shipped"]}},
					"customer": {"type": {"ref": "Customer"}},
					"tags": {"type": {"list": "string"}}
				}
			}
		},
		"functions": {
			"shipOrder": {
				"entity": "Order",
				"input": {"orderId": {"type": "uuid"}},
				"post": [{"action": {"update": "Order", "set": {"status": {"type": "literal", "value": "shipped"}}}}]
			}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "orders", doc.Meta.ID)
	require.Contains(t, doc.Entities, "Order")

	fields := doc.Entities["Order"].Fields
	assert.True(t, fields["id"].Required)
	assert.Equal(t, []string{"pending", "shipped"}, fields["status"].Type.Enum)
	assert.Equal(t, "Customer", fields["customer"].Type.Ref)
	require.True(t, fields["tags"].Type.IsList())
	assert.Equal(t, "string", fields["tags"].Type.List.Name)

	fn := doc.Functions["shipOrder"]
	require.Len(t, fn.Post, 1)
	assert.Equal(t, "Order", fn.Post[0].Action.TargetEntity())
	assert.Equal(t, "literal", fn.Post[0].Action.Set["status"].Kind())
}

func TestDecodeResolvesSectionAliases(t *testing.T) {
	doc, err := Decode([]byte(`{
		"meta": {"id": "s"},
		"state": {"Account": {"fields": {"id": {"type": "uuid"}}}},
		"commands": {"openAccount": {"entity": "Account"}}
	}`))
	require.NoError(t, err)

	assert.Contains(t, doc.Entities, "Account")
	assert.Contains(t, doc.Functions, "openAccount")
}

func TestDecodeCanonicalNameWinsOverAlias(t *testing.T) {
	doc, err := Decode([]byte(`{
		"entities": {"Canonical": {}},
		"state": {"Aliased": {}}
	}`))
	require.NoError(t, err)

	assert.Contains(t, doc.Entities, "Canonical")
	assert.NotContains(t, doc.Entities, "Aliased")
}

func TestDecodeTransitionFromForms(t *testing.T) {
	doc, err := Decode([]byte(`{
		"stateMachines": {
			"orderLifecycle": {
				"entity": "Order",
				"field": "status",
				"initial": "pending",
				"states": {"pending": {}, "shipped": {}, "cancelled": {"final": true}},
				"transitions": [
					{"from": "pending", "to": "shipped", "trigger_function": "shipOrder"},
					{"from": ["pending", "shipped"], "to": "cancelled", "trigger_function": "cancelOrder"}
				]
			}
		}
	}`))
	require.NoError(t, err)

	sm := doc.StateMachines["orderLifecycle"]
	require.Len(t, sm.Transitions, 2)
	assert.Equal(t, StringList{"pending"}, sm.Transitions[0].From)
	assert.Equal(t, StringList{"pending", "shipped"}, sm.Transitions[1].From)
	assert.True(t, sm.States["cancelled"].Final)
}

func TestFromValueRoundTrip(t *testing.T) {
	tree := map[string]any{
		"meta": map[string]any{"id": "demo"},
		"entities": map[string]any{
			"Item": map[string]any{
				"fields": map[string]any{"name": map[string]any{"type": "string"}},
			},
		},
	}

	doc, err := FromValue(tree)
	require.NoError(t, err)
	assert.Equal(t, "demo", doc.Meta.ID)
	assert.Equal(t, "string", doc.Entities["Item"].Fields["name"].Type.Name)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"meta": `))
	require.Error(t, err)
}

func TestDecodeVersionCompatibility(t *testing.T) {
	_, err := Decode([]byte(`{"meta": {"id": "s", "version": "2.0.0"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported spec version "2.0.0"`)

	for _, version := range []string{"", "1.0", "1.0.0", "1.4.2"} {
		_, err := Decode([]byte(`{"meta": {"id": "s", "version": "` + version + `"}}`))
		require.NoError(t, err, "version %q should decode", version)
	}
}

func TestSortedKeysIsDeterministic(t *testing.T) {
	m := map[string]int{"c": 1, "a": 2, "b": 3}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
	assert.Empty(t, SortedKeys(map[string]int{}))
}
