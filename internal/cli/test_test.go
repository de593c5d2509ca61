package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies a scenario and the shared schema into a temp tree
// with the same layout as testdata.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for src, dst := range map[string]string{
		"testdata/schema.yaml":                 filepath.Join(root, "schema.yaml"),
		"testdata/scenarios/" + name + ".yaml": filepath.Join(dir, name+".yaml"),
	} {
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(dst, data, 0o644))
	}
	return dir
}

func TestTest_MixedResults(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ add_planet")
	assert.Contains(t, out, "✗ wrong_name")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios", "--filter", "add_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_JSONFailure(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios", "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string     `json:"code"`
			Details TestResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Error.Details.Total)
	assert.Equal(t, 1, resp.Error.Details.Failed)
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_GoldenRoundTrip(t *testing.T) {
	dir := copyScenario(t, "add_planet")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ add_planet (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "add_planet.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"add_planet"`)

	out, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "matched", resp.Data.Scenarios[0].Golden)

	// A tampered golden file fails the scenario.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "add_planet.golden"), []byte("{}"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	files, err := findScenarioFiles("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "add_planet.yaml"),
		filepath.Join("testdata", "scenarios", "wrong_name.yaml"),
	}, files)

	_, err = findScenarioFiles("testdata/scenarios", "[")
	require.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "add_planet.golden"),
		goldenFilePath(filepath.Join("scenarios", "add_planet.yaml")))
}
