package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "loom", cmd.Use)
	assert.Contains(t, cmd.Short, "semantic checker")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "slice", "impact", "fix", "graph", "snapshot"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestImpactCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	impactCmd, _, err := cmd.Find([]string{"impact"})
	require.NoError(t, err)

	changeFlag := impactCmd.Flags().Lookup("change")
	require.NotNil(t, changeFlag)
	assert.Equal(t, "modify", changeFlag.DefValue)
}

func TestSnapshotCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	snapshotCmd, _, err := cmd.Find([]string{"snapshot"})
	require.NoError(t, err)

	dbFlag := snapshotCmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "loom.db", dbFlag.DefValue)

	saveCmd, _, err := cmd.Find([]string{"snapshot", "save"})
	require.NoError(t, err)
	nameFlag := saveCmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
	assert.Equal(t, "", nameFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "spec.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
