package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odyn/internal/funcs"
	"github.com/roach88/odyn/internal/testutil"
)

func testOptions(stub *testutil.StubTransport) *RootOptions {
	return &RootOptions{Format: "text", URL: "http://svc", Transport: stub}
}

func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestFilterCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"equality", []string{"--eq", "ProductName=Chai"}, "ProductName eq 'Chai'"},
		{"combined", []string{"--eq", "ProductName=Chai", "--gt", "UnitPrice=20"}, "ProductName eq 'Chai' and UnitPrice gt 20"},
		{"contains", []string{"--contains", "ProductName=ai"}, "substringof('ai',ProductName)"},
		{"starts with", []string{"--startswith", "ProductName=Ch"}, "startswith(ProductName,'Ch')"},
		{"nested member", []string{"--eq", "Category/CategoryName=Beverages"}, "Category/CategoryName eq 'Beverages'"},
		{"quoted number stays text", []string{"--eq", "PostalCode='12209'"}, "PostalCode eq '12209'"},
		{"boolean", []string{"--eq", "Discontinued=true"}, "Discontinued eq true"},
		{"null", []string{"--ne", "Region=null"}, "Region ne null"},
		{"guid", []string{"--eq", "Id=guid'0f8fad5b-d9cb-469f-a165-70867728950e'"}, "Id eq guid'0f8fad5b-d9cb-469f-a165-70867728950e'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(NewFilterCommand(&RootOptions{Format: "text"}), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestFilterCommand_JSON(t *testing.T) {
	out, _, err := execute(NewFilterCommand(&RootOptions{Format: "json"}), "--le", "UnitPrice=18.5")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "UnitPrice le 18.5", resp.Data["filter"])
}

func TestFilterCommand_Errors(t *testing.T) {
	_, _, err := execute(NewFilterCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no predicates")

	_, _, err = execute(NewFilterCommand(&RootOptions{Format: "text"}), "--eq", "ProductName")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "want FIELD=VALUE")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Nil(t, parseValue("null"))
	assert.Equal(t, "42", parseValue("'42'"))
	assert.Equal(t, "London", parseValue("London"))
	assert.Equal(t, "it's", parseValue("it's"))
}

func TestFindCommand(t *testing.T) {
	stub := testutil.NewStubTransport().
		On("GET", "http://svc/Products?$top=2&$inlinecount=allpages", testutil.StubResponse{Body: testutil.JSONLightProducts})

	out, _, err := execute(NewFindCommand(testOptions(stub)), "Products", "--top", "2", "--count")
	require.NoError(t, err)
	assert.Equal(t,
		`{"ProductID":1,"ProductName":"Chai","UnitPrice":18.5,"Discontinued":false}`+"\n"+
			`{"ProductID":2,"ProductName":"Chang","UnitPrice":19,"Discontinued":true}`+"\n"+
			"total: 2\n",
		out)
	assert.True(t, stub.AllClosed())
}

func TestFindCommand_HTTPTransport(t *testing.T) {
	var (
		userAgent string
		custom    string
		path      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		custom = r.Header.Get("X-Tenant")
		path = r.URL.RequestURI()
		_, _ = io.WriteString(w, `{"value":[{"ProductID":1}]}`)
	}))
	defer srv.Close()

	configPath := filepath.Join(t.TempDir(), "odyn.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("headers:\n  X-Tenant: north\n"), 0o644))

	opts := &RootOptions{Format: "text", URL: srv.URL, Config: configPath}
	out, _, err := execute(NewFindCommand(opts), "Products", "--top", "1")
	require.NoError(t, err)

	assert.Equal(t, `{"ProductID":1}`+"\n", out)
	assert.Equal(t, "odyn/"+Version, userAgent)
	assert.Equal(t, "north", custom)
	assert.Equal(t, "/Products?$top=1", path)
}

func TestFindCommand_FilterInURL(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Body: `{"value":[]}`})

	out, _, err := execute(NewFindCommand(testOptions(stub)),
		"Products", "--eq", "ProductName=Chai", "--select", "ProductID,ProductName", "--orderby", "ProductID")
	require.NoError(t, err)
	assert.Empty(t, out)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "http://svc/Products?$filter=ProductName+eq+%27Chai%27&$select=ProductID%2CProductName&$orderby=ProductID", calls[0].URL)
}

func TestFindCommand_JSONDegraded(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Status: 204})
	opts := testOptions(stub)
	opts.Format = "json"

	out, _, err := execute(NewFindCommand(opts), "Products")
	require.NoError(t, err)

	var resp struct {
		Data RecordSet `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "http_error", resp.Data.Outcome)
	assert.Equal(t, 204, resp.Data.Status)
	assert.Nil(t, resp.Data.TotalCount)
}

func TestFindCommand_TransportFailure(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Err: testutil.ErrConnectionRefused})

	out, _, err := execute(NewFindCommand(testOptions(stub)), "Products")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, testutil.ErrConnectionRefused)
	assert.Contains(t, out, "Error [E_REQUEST]")
}

func TestFindCommand_DecodeFailure(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Body: `{"value":[{"ProductID":1},`})

	out, _, err := execute(NewFindCommand(testOptions(stub)), "Products")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_DECODE]")
}

func TestFindCommand_MissingURL(t *testing.T) {
	opts := testOptions(testutil.NewStubTransport())
	opts.URL = ""

	_, _, err := execute(NewFindCommand(opts), "Products")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "service URL required")
}

func TestGetCommand(t *testing.T) {
	stub := testutil.NewStubTransport().
		On("GET", "http://svc/Customers('ALFKI')", testutil.StubResponse{Body: testutil.JSONVerboseEntry})

	out, _, err := execute(NewGetCommand(testOptions(stub)), "Customers", "ALFKI")
	require.NoError(t, err)
	assert.Equal(t, `{"CustomerID":"ALFKI","CompanyName":"Alfreds Futterkiste"}`+"\n", out)
}

func TestGetCommand_NumericKey(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Body: testutil.AtomEntry})

	_, _, err := execute(NewGetCommand(testOptions(stub)), "Orders", "10248", "--expand", "Customer")
	require.NoError(t, err)
	require.Len(t, stub.Calls(), 1)
	assert.Equal(t, "http://svc/Orders(10248)?$expand=Customer", stub.Calls()[0].URL)
}

func TestGetCommand_NotFound(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Status: 404})

	out, _, err := execute(NewGetCommand(testOptions(stub)), "Customers", "NONE")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "404")
}

func TestGetCommand_NotFoundSuppressedByConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "odyn.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("url: http://svc\nignore_resource_not_found: true\n"), 0o644))

	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Status: 404})
	opts := &RootOptions{Format: "json", Config: configPath, Transport: stub}

	out, _, err := execute(NewGetCommand(opts), "Customers", "NONE")
	require.NoError(t, err)

	var resp struct {
		Data RecordSet `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "not_found_suppressed", resp.Data.Outcome)
	assert.Empty(t, resp.Data.Records)
	assert.Equal(t, "http://svc/Customers('NONE')", stub.Calls()[0].URL)
}

func TestGetCommand_BadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "odyn.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("uri: http://svc\n"), 0o644))

	opts := &RootOptions{Format: "text", Config: configPath, Transport: testutil.NewStubTransport()}
	_, _, err := execute(NewGetCommand(opts), "Customers", "ALFKI")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestCountCommand(t *testing.T) {
	stub := testutil.NewStubTransport().
		On("GET", "http://svc/Products/$count", testutil.StubResponse{Body: "77"})

	out, _, err := execute(NewCountCommand(testOptions(stub)), "Products")
	require.NoError(t, err)
	assert.Equal(t, "77\n", out)
}

func TestCountCommand_JSON(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Body: "12"})
	opts := testOptions(stub)
	opts.Format = "json"

	out, _, err := execute(NewCountCommand(opts), "Products", "--eq", "Discontinued=true")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"count":12,"outcome":"success"}}`, out)
	assert.Equal(t, "http://svc/Products/$count?$filter=Discontinued+eq+true", stub.Calls()[0].URL)
}

func TestCallCommand(t *testing.T) {
	stub := testutil.NewStubTransport().
		On("GET", "http://svc/GetProductNames?category=%27Beverages%27&top=2", testutil.StubResponse{Body: testutil.FunctionPrimitiveCollectionXML})

	out, _, err := execute(NewCallCommand(testOptions(stub)), "GetProductNames", "-p", "category=Beverages", "--param", "top=2")
	require.NoError(t, err)
	assert.Equal(t, `{"__result":"Chai"}`+"\n"+`{"__result":"Chang"}`+"\n", out)
}

func TestCallCommand_Scalar(t *testing.T) {
	stub := testutil.NewStubTransport().Enqueue(testutil.StubResponse{Body: testutil.FunctionScalarXML})

	out, _, err := execute(NewCallCommand(testOptions(stub)), "ProductCount")
	require.NoError(t, err)
	assert.Contains(t, out, `"__result"`)
	assert.Contains(t, out, "77")
}

func TestCallCommand_BadParam(t *testing.T) {
	_, _, err := execute(NewCallCommand(testOptions(testutil.NewStubTransport())), "F", "--param", "novalue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFunctionsCommand(t *testing.T) {
	out, _, err := execute(NewFunctionsCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)
	assert.Contains(t, out, "KEYWORD")
	assert.Contains(t, out, "substringof")
	assert.Contains(t, out, "last")

	out, _, err = execute(NewFunctionsCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)
	var resp struct {
		Data []FunctionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, funcs.Default().Len())
}

func TestHistoryCommand(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "odyn.db")
	stub := testutil.NewStubTransport().
		Enqueue(testutil.StubResponse{Body: testutil.JSONVerboseEntry}).
		Enqueue(testutil.StubResponse{Err: testutil.ErrConnectionRefused})
	opts := testOptions(stub)
	opts.Journal = journal

	_, _, err := execute(NewGetCommand(opts), "Customers", "ALFKI")
	require.NoError(t, err)
	_, _, err = execute(NewFindCommand(opts), "Orders")
	require.Error(t, err)

	opts.Format = "json"
	out, _, err := execute(NewHistoryCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "get", resp.Data[0].Operation)
	assert.Equal(t, "success", resp.Data[0].State)
	assert.Equal(t, 1, resp.Data[0].Records)
	assert.Equal(t, "find", resp.Data[1].Operation)
	assert.Equal(t, "transport_error", resp.Data[1].State)
	assert.Contains(t, resp.Data[1].Error, "connection refused")

	out, _, err = execute(NewHistoryCommand(opts), "--state", "transport_error")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "find", resp.Data[0].Operation)

	opts.Format = "text"
	out, _, err = execute(NewHistoryCommand(opts), "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "GET http://svc/Orders")
	assert.NotContains(t, out, "ALFKI")
	assert.Contains(t, out, "2 request(s) journaled: success 1, transport_error 1")
}

func TestHistoryCommand_Errors(t *testing.T) {
	_, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal required")

	opts := &RootOptions{Format: "text", Journal: filepath.Join(t.TempDir(), "empty.db")}
	out, _, err := execute(NewHistoryCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "No requests recorded.\n", out)

	_, _, err = execute(NewHistoryCommand(opts), "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

const passingScenario = `name: get_customer
description: single entry lookup
steps:
  - operation: get
    path: Customers('ALFKI')
    response:
      body: '{"d":{"CustomerID":"ALFKI"}}'
    expect:
      records: 1
      fields:
        CustomerID: ALFKI
`

const failingScenario = `name: wrong_count
description: expectation does not hold
steps:
  - operation: find
    path: Products
    response:
      body: '{"value":[]}'
    expect:
      records: 5
`

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	scenarioFile := filepath.Join(dir, "get_customer.yaml")
	require.NoError(t, os.WriteFile(scenarioFile, []byte(passingScenario), 0o644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ get_customer")
	assert.Contains(t, out, "All scenarios passed")

	out, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	goldenFile := filepath.Join(dir, "golden", "get_customer.golden")
	data, err := os.ReadFile(goldenFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario": "get_customer"`)

	_, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenFile, []byte("{}\n"), 0o644))
	out, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_FailuresAndFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "get_customer.yaml"), []byte(passingScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_count.yaml"), []byte(failingScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 2, resp.Data.Failed)

	out, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "get_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Empty(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}
