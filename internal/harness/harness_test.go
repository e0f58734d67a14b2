package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/testutil"
)

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			report, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, report.Pass(), "errors: %v", report.Errors)
		})
	}
}

func TestRun_AtomFeedWithResourceType(t *testing.T) {
	scenario := &Scenario{
		Name:        "atom",
		Description: "Atom feed",
		Settings:    Settings{IncludeResourceType: true},
		Steps: []Step{{
			Operation:   OpFind,
			Path:        "Products?$expand=Category&$inlinecount=allpages",
			InlineCount: true,
			Response:    Response{Body: testutil.AtomProducts},
			Expect: &Expect{
				Outcome:    "success",
				Records:    intPtr(2),
				TotalCount: int64Ptr(77),
				Fields: map[string]any{
					"0.ProductName":           "Chai",
					"0.ProductID":             1,
					"0.Category.CategoryName": "Beverages",
					"0." + feed.TypeKey:       "Product",
				},
			},
		}},
	}

	report, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, report.Pass(), "errors: %v", report.Errors)
	require.Len(t, report.Journal, 1)
	assert.Equal(t, "find", report.Journal[0].Operation)
}

func TestRun_CountAndFunction(t *testing.T) {
	scenario := &Scenario{
		Name:        "scalars",
		Description: "count endpoint and function call",
		Steps: []Step{
			{
				Operation: OpCount,
				Path:      "Products/$count",
				Response:  Response{Body: "77"},
				Expect: &Expect{
					Records: intPtr(1),
					Fields:  map[string]any{feed.ResultKey: 77},
				},
			},
			{
				Operation: OpFunction,
				Path:      "GetProductNames",
				Response:  Response{Body: testutil.FunctionPrimitiveCollectionXML},
				Expect:    &Expect{Outcome: "success"},
			},
		},
	}

	report, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, report.Pass(), "errors: %v", report.Errors)
	assert.NotEmpty(t, report.Steps[1].Records)

	require.Len(t, report.Journal, 2)
	assert.Equal(t, "find", report.Journal[0].Operation)
	assert.Equal(t, "function", report.Journal[1].Operation)
}

func TestRun_FailedExpectationsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "wrong expectations",
		Steps: []Step{
			{
				Operation: OpFind,
				Path:      "Products",
				Response:  Response{Body: testutil.JSONLightProducts},
				Expect: &Expect{
					Outcome: "http_error",
					Records: intPtr(99),
					Fields:  map[string]any{"0.Missing": "x"},
				},
			},
			{
				Operation: OpGet,
				Path:      "Products(1)",
				Response:  Response{Status: 500},
			},
		},
		Assertions: []Assertion{
			{Type: AssertJournalCount, Operation: "find", Count: 3},
		},
	}

	report, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, report.Pass())
	require.Len(t, report.Errors, 5)
	assert.Contains(t, report.Errors[0], "expected outcome http_error")
	assert.Contains(t, report.Errors[1], "expected 99 records")
	assert.Contains(t, report.Errors[2], "field 0.Missing: not found")
	assert.Contains(t, report.Errors[3], "unexpected error")
	assert.Contains(t, report.Errors[4], "Assertion failed: journal_count")
}

func TestRun_UnexpectedErrorWithoutExpect(t *testing.T) {
	scenario := &Scenario{
		Name:        "boom",
		Description: "transport failure",
		Steps: []Step{{
			Operation: OpDelete,
			Path:      "Products(1)",
			Response:  Response{TransportError: "connection reset"},
		}},
	}

	report, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "connection reset")
	assert.Equal(t, "transport_error", report.Journal[0].State)
}

func TestParseScenario(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := ParseScenario([]byte(`
name: ok
description: d
steps:
  - operation: get
    path: Products(1)
    expect:
      records: 1
      ok: true
`))
		require.NoError(t, err)
		require.Len(t, s.Steps, 1)
		assert.Equal(t, 1, *s.Steps[0].Expect.Records)
		assert.True(t, *s.Steps[0].Expect.OK)
	})

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: d\nstepz: []\n", "stepz"},
		{"missing name", "description: d\nsteps: [{operation: get, path: x}]\n", "name is required"},
		{"missing description", "name: x\nsteps: [{operation: get, path: x}]\n", "description is required"},
		{"no steps", "name: x\ndescription: d\n", "steps list is required"},
		{"bad operation", "name: x\ndescription: d\nsteps: [{operation: patch, path: x}]\n", `unknown operation "patch"`},
		{"missing path", "name: x\ndescription: d\nsteps: [{operation: get}]\n", "path is required"},
		{"bad status", "name: x\ndescription: d\nsteps: [{operation: get, path: x, response: {status: 700}}]\n", "out of range"},
		{"transport error with body", "name: x\ndescription: d\nsteps: [{operation: get, path: x, response: {transport_error: e, body: b}}]\n", "transport_error excludes"},
		{"assertion without type", "name: x\ndescription: d\nsteps: [{operation: get, path: x}]\nassertions: [{operation: get}]\n", "type is required"},
		{"unknown assertion", "name: x\ndescription: d\nsteps: [{operation: get, path: x}]\nassertions: [{type: final_state}]\n", "unknown assertion type"},
		{"order without operations", "name: x\ndescription: d\nsteps: [{operation: get, path: x}]\nassertions: [{type: journal_order}]\n", "operations list is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEvaluateAssertions(t *testing.T) {
	journal := []JournalEntry{
		{Seq: 1, Operation: "get", Outcome: "success"},
		{Seq: 2, Operation: "find", Outcome: "http_error"},
		{Seq: 3, Operation: "get", Outcome: "not_found_suppressed"},
	}

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"contains", Assertion{Type: AssertJournalContains, Operation: "find"}, false},
		{"contains with outcome", Assertion{Type: AssertJournalContains, Operation: "get", Outcome: "not_found_suppressed"}, false},
		{"contains missing", Assertion{Type: AssertJournalContains, Operation: "delete"}, true},
		{"order", Assertion{Type: AssertJournalOrder, Operations: []string{"get", "find", "get"}}, false},
		{"order skips", Assertion{Type: AssertJournalOrder, Operations: []string{"get", "get"}}, false},
		{"order wrong", Assertion{Type: AssertJournalOrder, Operations: []string{"find", "find"}}, true},
		{"count", Assertion{Type: AssertJournalCount, Operation: "get", Count: 2}, false},
		{"count outcome", Assertion{Type: AssertJournalCount, Operation: "get", Outcome: "success", Count: 1}, false},
		{"count wrong", Assertion{Type: AssertJournalCount, Operation: "find", Count: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(journal, []Assertion{tt.assertion})
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0], "Journal:")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestCheckExpect(t *testing.T) {
	rec := feed.NewPropertyMap()
	rec.Set("Name", "Chai")
	rec.Set("Price", 18.5)
	addr := feed.NewPropertyMap()
	addr.Set("City", "Reims")
	rec.Set("Address", addr)

	sr := StepReport{
		Outcome:    "success",
		Records:    []*feed.PropertyMap{rec},
		TotalCount: int64Ptr(5),
		OK:         boolPtr(true),
	}

	assert.Empty(t, checkExpect(sr, &Expect{
		Outcome:    "success",
		Records:    intPtr(1),
		TotalCount: int64Ptr(5),
		OK:         boolPtr(true),
		Suppressed: boolPtr(false),
		Fields: map[string]any{
			"Name":           "Chai",
			"0.Price":        18.5,
			"Address.City":   "Reims",
			"0.Address.City": "Reims",
		},
	}))

	errs := checkExpect(sr, &Expect{
		TotalCount: int64Ptr(6),
		OK:         boolPtr(false),
		Error:      "boom",
		Fields:     map[string]any{"1.Name": "x", "Name": "Chang"},
	})
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0], `expected error containing "boom"`)
	assert.Contains(t, errs[1], "expected total count 6, got 5")
	assert.Contains(t, errs[2], "expected ok=false")
	assert.Contains(t, errs[3], "field 1.Name: not found")
	assert.Contains(t, errs[4], "field Name: expected Chang, got Chai")
}

func TestGoldenHelpers(t *testing.T) {
	dir := t.TempDir()
	scenarioFile := filepath.Join(dir, "cart.yaml")
	path := GoldenPath(scenarioFile)
	assert.Equal(t, filepath.Join(dir, "golden", "cart.golden"), path)

	report := NewReport("cart")
	report.Steps = append(report.Steps, StepReport{Name: "get x", Request: "GET x"})

	_, err := CompareGolden(report, path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, WriteGolden(report, path))
	match, err := CompareGolden(report, path)
	require.NoError(t, err)
	assert.True(t, match)

	report.AddError("changed")
	match, err = CompareGolden(report, path)
	require.NoError(t, err)
	assert.False(t, match)
}
