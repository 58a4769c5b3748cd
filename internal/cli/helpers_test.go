package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCommand runs the mm CLI with the given arguments and captures
// stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeDefs writes a CUE definitions file into a temp dir and returns
// its path.
func writeDefs(t *testing.T, src string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "defs.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

const guitarDefs = `
generic: strum: {
	doc: "derived-symbol dispatch with a catch-all fallback"
	method: [
		{on: [{arg: 0, derived: "guitar"}], body: "const:\"strummed\""},
		{on: [{arg: 0, any: true}], body: "const:\"ignored\""},
	]
}

generic: tune: {
	doc: "string-only generic, fails on anything else"
	method: [
		{on: [{arg: 0, type: "string"}], body: "echo"},
	]
}
`
