package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// DiscoverScenarios expands paths into scenario files. A file is taken as
// is; a directory contributes its *.yaml and *.yml files, sorted by name.
func DiscoverScenarios(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: p}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}
