package harness

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/odyn/internal/feed"
)

// AssertionError is returned when an assertion fails.
// It carries the journal so failures can be read in context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Journal  []JournalEntry
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nJournal:\n")
	for _, j := range e.Journal {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", j.Seq, j.Operation, j.State, j.Outcome)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the journal and returns
// the failure messages.
func EvaluateAssertions(journal []JournalEntry, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertJournalContains:
			err = assertJournalContains(journal, a)
		case AssertJournalOrder:
			err = assertJournalOrder(journal, a)
		case AssertJournalCount:
			err = assertJournalCount(journal, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func matches(j JournalEntry, a Assertion) bool {
	return j.Operation == a.Operation && (a.Outcome == "" || j.Outcome == a.Outcome)
}

func describe(a Assertion) string {
	if a.Outcome == "" {
		return a.Operation
	}
	return a.Operation + " with outcome " + a.Outcome
}

func assertJournalContains(journal []JournalEntry, a Assertion) error {
	for _, j := range journal {
		if matches(j, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertJournalContains,
		Expected: describe(a),
		Actual:   "not found in journal",
		Journal:  journal,
	}
}

// assertJournalOrder checks that the operations appear in order.
// Intervening requests are allowed.
func assertJournalOrder(journal []JournalEntry, a Assertion) error {
	next := 0
	for _, j := range journal {
		if next < len(a.Operations) && j.Operation == a.Operations[next] {
			next++
		}
	}
	if next == len(a.Operations) {
		return nil
	}
	return &AssertionError{
		Type:     AssertJournalOrder,
		Expected: fmt.Sprintf("operations in order: %v", a.Operations),
		Actual:   fmt.Sprintf("%s not found after %v", a.Operations[next], a.Operations[:next]),
		Journal:  journal,
	}
}

func assertJournalCount(journal []JournalEntry, a Assertion) error {
	count := 0
	for _, j := range journal {
		if matches(j, a) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertJournalCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describe(a)),
		Actual:   fmt.Sprintf("%d", count),
		Journal:  journal,
	}
}

// checkExpect compares a step report with its expectation.
func checkExpect(sr StepReport, e *Expect) []string {
	var errs []string
	if e.Error != "" {
		if !strings.Contains(sr.Error, e.Error) {
			errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", e.Error, sr.Error))
		}
	} else if sr.Error != "" {
		errs = append(errs, "unexpected error: "+sr.Error)
	}
	if e.Outcome != "" && sr.Outcome != e.Outcome {
		errs = append(errs, fmt.Sprintf("expected outcome %s, got %q", e.Outcome, sr.Outcome))
	}
	if e.Records != nil && len(sr.Records) != *e.Records {
		errs = append(errs, fmt.Sprintf("expected %d records, got %d", *e.Records, len(sr.Records)))
	}
	if e.TotalCount != nil {
		switch {
		case sr.TotalCount == nil:
			errs = append(errs, "expected total count, step did not request one")
		case *sr.TotalCount != *e.TotalCount:
			errs = append(errs, fmt.Sprintf("expected total count %d, got %d", *e.TotalCount, *sr.TotalCount))
		}
	}
	if e.OK != nil && (sr.OK == nil || *sr.OK != *e.OK) {
		errs = append(errs, fmt.Sprintf("expected ok=%t", *e.OK))
	}
	if e.Suppressed != nil && sr.Suppressed != *e.Suppressed {
		errs = append(errs, fmt.Sprintf("expected suppressed=%t", *e.Suppressed))
	}
	paths := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		want := e.Fields[path]
		got, ok := lookupField(sr.Records, path)
		if !ok {
			errs = append(errs, fmt.Sprintf("field %s: not found", path))
			continue
		}
		if render(got) != render(want) {
			errs = append(errs, fmt.Sprintf("field %s: expected %s, got %s", path, render(want), render(got)))
		}
	}
	return errs
}

// lookupField resolves "index.Key.Nested" against records. A missing index
// means record 0.
func lookupField(records []*feed.PropertyMap, path string) (any, bool) {
	parts := strings.Split(path, ".")
	idx := 0
	if n, err := strconv.Atoi(parts[0]); err == nil {
		idx = n
		parts = parts[1:]
	}
	if idx < 0 || idx >= len(records) || records[idx] == nil || len(parts) == 0 {
		return nil, false
	}
	return records[idx].Lookup(parts...)
}

// render gives YAML and decoded values a common textual form.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC().Format(time.RFC3339Nano)
		}
		return t
	case []*feed.PropertyMap:
		return fmt.Sprintf("[%d records]", len(t))
	case *feed.PropertyMap:
		return fmt.Sprintf("{%d fields}", t.Len())
	}
	return fmt.Sprint(v)
}
