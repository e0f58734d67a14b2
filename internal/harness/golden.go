package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares its report against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Report, error) {
	t.Helper()

	report, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, report); err != nil {
		return nil, err
	}
	return report, nil
}

// AssertGolden compares an existing report against its golden file.
func AssertGolden(t *testing.T, name string, report *Report) error {
	t.Helper()

	snapshot, err := report.Snapshot()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}

// GoldenPath returns where the CLI keeps the golden report for a scenario
// file: a golden/ directory next to it.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// CompareGolden reports whether the report matches the golden file at path.
// A missing file is reported via the returned error (os.ErrNotExist).
func CompareGolden(report *Report, path string) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	got, err := report.Snapshot()
	if err != nil {
		return false, err
	}
	return string(want) == string(got), nil
}

// WriteGolden stores the report snapshot at path, creating directories.
func WriteGolden(report *Report, path string) error {
	data, err := report.Snapshot()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
