package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/request"
	"github.com/roach88/odyn/internal/runner"
	"github.com/roach88/odyn/internal/store"
	"github.com/roach88/odyn/internal/testutil"
)

// ServiceRoot is the base URL every step path is appended to.
const ServiceRoot = "http://odata.test/service.svc"

// clockStart anchors the deterministic journal clock.
var clockStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness executes scenarios against a stub transport with deterministic
// request ids and timings.
type Harness struct {
	store  *store.Store
	stub   *testutil.StubTransport
	runner *runner.Runner
	logger *slog.Logger
}

// Run executes a scenario and returns its report.
//
// Each scenario runs with a fresh in-memory journal. Step failures that the
// scenario did not expect are collected in the report rather than aborting
// the run; an error is returned only when the harness itself cannot start.
func Run(ctx context.Context, scenario *Scenario) (*Report, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stub := testutil.NewStubTransport()
	clock := testutil.NewSteppingClock(clockStart, time.Millisecond)

	h := &Harness{
		store: st,
		stub:  stub,
		runner: runner.New(stub, runner.Settings{
			IgnoreResourceNotFound: scenario.Settings.IgnoreResourceNotFound,
			IncludeResourceType:    scenario.Settings.IncludeResourceType,
			RecordElement:          scenario.Settings.RecordElement,
		},
			runner.WithLogger(logger),
			runner.WithJournal(st),
			runner.WithIDGenerator(testutil.NewSequentialIDGenerator("req")),
			runner.WithNow(clock.Now),
		),
		logger: logger,
	}

	report := NewReport(scenario.Name)
	for i, step := range scenario.Steps {
		sr := h.executeStep(ctx, step)
		if step.Expect != nil {
			for _, msg := range checkExpect(sr, step.Expect) {
				report.AddError(fmt.Sprintf("step %d (%s): %s", i+1, sr.Name, msg))
			}
		} else if sr.Error != "" {
			report.AddError(fmt.Sprintf("step %d (%s): unexpected error: %s", i+1, sr.Name, sr.Error))
		}
		report.Steps = append(report.Steps, sr)
	}

	rows, err := st.List(ctx, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	for _, row := range rows {
		report.Journal = append(report.Journal, journalEntry(row))
	}

	for _, msg := range EvaluateAssertions(report.Journal, scenario.Assertions) {
		report.AddError(msg)
	}
	return report, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) StepReport {
	method := methodFor(step.Operation)
	req := &request.Prepared{
		Method: method,
		URL:    ServiceRoot + "/" + strings.TrimLeft(step.Path, "/"),
		Header: http.Header{},
	}
	if step.Body != "" {
		req.Body = []byte(step.Body)
		req.Header.Set("Content-Type", "application/json")
	}

	reply := testutil.StubResponse{Status: step.Response.Status, Body: step.Response.Body}
	if step.Response.TransportError != "" {
		reply = testutil.StubResponse{Err: errors.New(step.Response.TransportError)}
	}
	h.stub.Enqueue(reply)

	sr := StepReport{Name: step.Name, Request: req.String()}
	if sr.Name == "" {
		sr.Name = step.Operation + " " + step.Path
	}
	h.logger.Debug("executing step", "step", sr.Name)

	switch step.Operation {
	case OpFind, OpCount, OpFunction:
		var res *runner.Result
		var err error
		if step.Operation == OpFunction {
			res, err = h.runner.ExecuteFunction(ctx, req)
		} else {
			res, err = h.runner.FindEntries(ctx, req, runner.FindOptions{
				ScalarResult:  step.Operation == OpCount,
				SetTotalCount: step.InlineCount,
			})
		}
		if err != nil {
			sr.Error = err.Error()
			return sr
		}
		sr.fromResult(res.State, res.Outcome, res.StatusCode, res.Suppressed())
		records, err := res.Collect()
		if err != nil {
			sr.Error = err.Error()
		}
		sr.Records = records
		if step.InlineCount {
			n := res.TotalCount()
			sr.TotalCount = &n
		}

	case OpGet:
		res, err := h.runner.GetEntry(ctx, req)
		if err != nil {
			sr.Error = err.Error()
			return sr
		}
		sr.fromResult(res.State, res.Outcome, res.StatusCode, res.Suppressed())
		if res.Entry != nil {
			sr.Records = []*feed.PropertyMap{res.Entry}
		}

	case OpInsert:
		entry, err := h.runner.InsertEntry(ctx, req, step.ResultRequired)
		if err != nil {
			sr.Error = err.Error()
			return sr
		}
		ok := true
		sr.OK = &ok
		if entry != nil {
			sr.Records = []*feed.PropertyMap{entry}
		}

	case OpUpdate, OpDelete:
		var ok bool
		var err error
		if step.Operation == OpUpdate {
			ok, err = h.runner.UpdateEntry(ctx, req)
		} else {
			ok, err = h.runner.DeleteEntry(ctx, req)
		}
		if err != nil {
			sr.Error = err.Error()
			return sr
		}
		sr.OK = &ok
	}
	return sr
}

func methodFor(operation string) string {
	switch operation {
	case OpInsert:
		return http.MethodPost
	case OpUpdate:
		return "MERGE"
	case OpDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

func journalEntry(row store.Request) JournalEntry {
	return JournalEntry{
		Seq:       row.Seq,
		ID:        row.ID,
		Operation: row.Operation,
		Method:    row.Method,
		State:     row.State,
		Outcome:   row.Outcome,
		Status:    row.StatusCode,
		Records:   row.Records,
	}
}
