package cli

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	server := newFakeServer(t, map[string]cannedReply{
		"adresar.json?detail=id&limit=1&add-row-count=true&code-as-id=true": {http.StatusOK,
			`{"winstrom":{"@rowCount":"42","adresar":[{"id":"1"}]}}`},
	})
	configDir := writeServerConfig(t, server, "")

	output, err := executeCommand(t, "--config", configDir, "count", "adresar")
	require.NoError(t, err)
	assert.Equal(t, "42\n", output)
}

func TestCountWithFilterJSON(t *testing.T) {
	server := newFakeServer(t, map[string]cannedReply{
		"adresar/(kod%20BEGINS%20SIMILAR%20%27F%27).json?detail=id&limit=1&add-row-count=true&code-as-id=true": {http.StatusOK,
			`{"winstrom":{"@rowCount":7,"adresar":[]}}`},
	})
	configDir := writeServerConfig(t, server, "")

	output, err := executeCommand(t, "--format", "json", "--config", configDir,
		"count", "adresar", "--filter", `kod.startsWith("F")`)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CountResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, CountResult{Resource: "adresar", Filter: `kod.startsWith("F")`, Count: 7}, resp.Data)
}

func TestCountMissingRowCount(t *testing.T) {
	server := newFakeServer(t, map[string]cannedReply{
		"adresar.json?detail=id&limit=1&add-row-count=true&code-as-id=true": {http.StatusOK,
			`{"winstrom":{"adresar":[]}}`},
	})
	configDir := writeServerConfig(t, server, "")

	output, err := executeCommand(t, "--config", configDir, "count", "adresar")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "@rowCount")
}

func TestCountUnknownResource(t *testing.T) {
	server := newFakeServer(t, nil)
	configDir := writeServerConfig(t, server, "")

	// A 404 on a count reads as nothing to count
	output, err := executeCommand(t, "--config", configDir, "count", "neznamy")
	require.NoError(t, err)
	assert.Equal(t, "0\n", output)
}

func TestCountInvalidFilter(t *testing.T) {
	_, err := executeCommand(t, "--config", t.TempDir(), "count", "adresar", "--filter", "kod ==")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInvalidFlag)
}
