package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))
	single := filepath.Join(dir, "notes.txt")

	paths, err := DiscoverScenarios(dir, single)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		single,
	}, paths)
}

func TestDiscoverScenarios_Missing(t *testing.T) {
	_, err := DiscoverScenarios(filepath.Join(t.TempDir(), "missing"))
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestDiscoverScenarios_Repository(t *testing.T) {
	paths, err := DiscoverScenarios(filepath.Join("..", "..", "testdata", "scenarios"))
	require.NoError(t, err)
	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}
	assert.NotEmpty(t, paths)
}
