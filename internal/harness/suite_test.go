package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuite_Scenarios(t *testing.T) {
	result, err := RunSuite("testdata/scenarios", "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed, "failures: %+v", result.Failures)
	assert.Zero(t, result.Failed)
}

func TestFindScenarios_Filter(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "link_*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "link_orders.yaml", filepath.Base(files[0]))

	_, err = FindScenarios("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestRunSuite_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "passing.yaml", `
name: passing
description: d
flow:
  - operation: delete-one
    resource: adresar
    id: "5"
`)
	writeFile(t, dir, "failing.yml", `
name: failing
description: d
flow:
  - operation: count
    resource: adresar
    replies:
      - body:
          "@rowCount": 1
    expect:
      result: 2
`)
	writeFile(t, dir, "broken.yaml", "name: broken\n")
	writeFile(t, dir, "notes.txt", "not a scenario")

	result, err := RunSuite(dir, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)

	byName := map[string]ScenarioFailure{}
	for _, f := range result.Failures {
		byName[f.Scenario] = f
	}
	require.Contains(t, byName, "failing")
	assert.Contains(t, byName["failing"].Errors[0], "expected result 2")
	require.Contains(t, byName, "broken.yaml")
	assert.Contains(t, byName["broken.yaml"].Errors[0], "failed to load scenario")
}

func TestRunSuite_MissingDirectory(t *testing.T) {
	_, err := RunSuite(filepath.Join(t.TempDir(), "missing"), "")
	require.Error(t, err)
}
