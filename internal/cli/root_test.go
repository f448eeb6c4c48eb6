package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// invoiceMapping declares invoices with a company association.
const invoiceMapping = `package mapping

resource: "faktura-vydana": {
	primary: "kod"
	selection: ["id", "kod"]
	association: company: {
		kind:      "n:1"
		by:        ["firma"]
		target:    "adresar"
		selection: "id,kod"
	}
}

resource: adresar: {
	primary: "kod"
	selection: ["id", "kod"]
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "flexiq", cmd.Use)
	assert.Contains(t, cmd.Long, "FlexiBee")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "get", "count", "test", "trace"}

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

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compile", "get"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			for _, flag := range []string{"filter", "select", "order", "limit", "offset", "id", "mapping", "assoc", "option"} {
				assert.NotNil(t, sub.Flags().Lookup(flag), "--%s", flag)
			}
		})
	}

	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)
	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.NotNil(t, compileCmd.Flags().Lookup("count"))
}

func TestTraceCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	traceCmd, _, err := cmd.Find([]string{"trace"})
	require.NoError(t, err)

	dbFlag := traceCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db is required, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := executeCommand(t, "--format", "xml", "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVerboseLowersLogLevel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invoices.cue", invoiceMapping)

	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	cmd := NewRootCommand(WithLogLevel(level))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--verbose", "validate", dir})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestQuietKeepsLogLevel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invoices.cue", invoiceMapping)

	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	cmd := NewRootCommand(WithLogLevel(level))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", dir})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, slog.LevelWarn, level.Level())
}
