package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"validate", "describe", "invoke", "run", "trace", "replay"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestRootCommand_UnknownCommand(t *testing.T) {
	_, _, err := executeCommand(t, "frobnicate")
	require.Error(t, err)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	defs := writeDefs(t, guitarDefs)

	_, _, err := executeCommand(t, "validate", "--format", "yaml", defs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "nope")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "bad", assert.AnError)))
}
