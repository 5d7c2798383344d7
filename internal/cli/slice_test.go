package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceCommand(t *testing.T) {
	path := writeSpec(t, "spec.json", cleanSpec)

	buf := &bytes.Buffer{}
	cmd := NewSliceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "payOrder"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Slice for payOrder")
	assert.Contains(t, output, "entities:   Order")
	assert.Contains(t, output, "derived:    (none)")
}

func TestSliceCommandJSON(t *testing.T) {
	path := writeSpec(t, "spec.json", cleanSpec)

	buf := &bytes.Buffer{}
	cmd := NewSliceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "payOrder"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "payOrder", data["function"])
	assert.Equal(t, []any{"Order"}, data["entities"])
}

func TestSliceCommandUnknownFunction(t *testing.T) {
	path := writeSpec(t, "spec.json", cleanSpec)

	buf := &bytes.Buffer{}
	cmd := NewSliceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "refundOrder"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E004")
	assert.Contains(t, buf.String(), `"refundOrder" not found`)
}
