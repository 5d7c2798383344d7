package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanSpec = `{
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
}`

const brokenSpec = `{
	"entities": {"Order": {"fields": {"customer": {"type": {"ref": "Customer"}}}}}
}`

func TestValidateCleanSpec(t *testing.T) {
	path := writeSpec(t, "spec.json", cleanSpec)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Spec valid")
}

func TestValidateCleanSpecJSON(t *testing.T) {
	path := writeSpec(t, "spec.json", cleanSpec)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
}

func TestValidateBrokenSpec(t *testing.T) {
	path := writeSpec(t, "spec.json", brokenSpec)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "REF-001")
}

func TestValidateBrokenSpecJSON(t *testing.T) {
	path := writeSpec(t, "spec.json", brokenSpec)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// The result envelope is still emitted before the exit error.
	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["valid"])
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/spec.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E002")
}

func TestValidateVerboseOutput(t *testing.T) {
	path := writeSpec(t, "spec.json", cleanSpec)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "Validating")
}
