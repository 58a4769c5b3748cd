package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/store"
)

// seedTraceDB dispatches a few calls through the CLI with recording on
// and returns the database path.
func seedTraceDB(t *testing.T) string {
	t.Helper()

	defs := writeDefs(t, guitarDefs)
	dbPath := filepath.Join(t.TempDir(), "trace.db")

	_, _, err := executeCommand(t, "invoke", defs, "strum", "1", "--trace-db", dbPath)
	require.NoError(t, err)
	_, _, err = executeCommand(t, "invoke", defs, "tune", `"e"`, "--trace-db", dbPath)
	require.NoError(t, err)
	_, _, err = executeCommand(t, "invoke", defs, "tune", "5", "--trace-db", dbPath)
	require.Error(t, err) // recorded as an error outcome

	return dbPath
}

func TestTrace_ListsCalls(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "strum")
	assert.Contains(t, lines[2], "error NO_APPLICABLE_METHOD")
}

func TestTrace_FilterByGeneric(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath, "--generic", "tune")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "tune")
	}
}

func TestTrace_FilterByOutcome(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath, "--outcome", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "NO_APPLICABLE_METHOD")
}

func TestTrace_FilterByFailureCode(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath, "--failure", "NO_APPLICABLE_METHOD")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "tune")
}

func TestTrace_SeqWindow(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath, "--min-seq", "2", "--max-seq", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "tune")
}

func TestTrace_Limit(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath, "--limit", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 1)
}

func TestTrace_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trace.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := executeCommand(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no calls recorded")
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, _, err := executeCommand(t, "trace", "--db", "no/such/trace.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_JSONOutput(t *testing.T) {
	dbPath := seedTraceDB(t)

	stdout, _, err := executeCommand(t, "trace", "--format", "json", "--db", dbPath, "--generic", "strum")
	require.NoError(t, err)

	var resp struct {
		Status string                `json:"status"`
		Data   []dispatch.CallRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "strum", resp.Data[0].Generic)
	assert.NotEmpty(t, resp.Data[0].CallID)
}
