package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted conversation with a stubbed service.
// Each step sends one request, receives the canned response and checks the
// runner's result; assertions then check the request journal.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Settings Settings `yaml:"settings"`

	Steps []Step `yaml:"steps"`

	// Assertions validate the request journal after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Settings mirror the runner switches a scenario can turn on.
type Settings struct {
	IgnoreResourceNotFound bool   `yaml:"ignore_resource_not_found"`
	IncludeResourceType    bool   `yaml:"include_resource_type"`
	RecordElement          string `yaml:"record_element"`
}

// Step is one request/response exchange.
type Step struct {
	// Name is optional; it defaults to "<operation> <path>".
	Name string `yaml:"name,omitempty"`

	// Operation is one of find, count, get, insert, update, delete, function.
	Operation string `yaml:"operation"`

	// Path is appended to the service root, query string included
	// (e.g. "Products?$top=2").
	Path string `yaml:"path"`

	// Body is sent with insert and update.
	Body string `yaml:"body,omitempty"`

	// InlineCount exposes the payload's count marker on find.
	InlineCount bool `yaml:"inline_count,omitempty"`

	// ResultRequired asks insert to decode the created entry.
	ResultRequired bool `yaml:"result_required,omitempty"`

	Response Response `yaml:"response"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Response is the canned reply for a step.
type Response struct {
	// Status defaults to 200.
	Status int    `yaml:"status,omitempty"`
	Body   string `yaml:"body,omitempty"`

	// TransportError fails the exchange before any status is received.
	TransportError string `yaml:"transport_error,omitempty"`
}

// Expect checks a step's result. Unset fields are not checked.
type Expect struct {
	Outcome    string         `yaml:"outcome,omitempty"`
	Records    *int           `yaml:"records,omitempty"`
	TotalCount *int64         `yaml:"total_count,omitempty"`
	OK         *bool          `yaml:"ok,omitempty"`
	Suppressed *bool          `yaml:"suppressed,omitempty"`
	Error      string         `yaml:"error,omitempty"`
	Fields     map[string]any `yaml:"fields,omitempty"`
}

// Assertion validates the request journal.
type Assertion struct {
	// Type is one of journal_contains, journal_order, journal_count.
	Type string `yaml:"type"`

	// Operation is used by journal_contains and journal_count.
	Operation string `yaml:"operation,omitempty"`

	// Outcome narrows journal_contains and journal_count.
	Outcome string `yaml:"outcome,omitempty"`

	// Operations is the expected order for journal_order.
	Operations []string `yaml:"operations,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertJournalContains = "journal_contains"
	AssertJournalOrder    = "journal_order"
	AssertJournalCount    = "journal_count"
)

// Operation names accepted in steps.
const (
	OpFind     = "find"
	OpCount    = "count"
	OpGet      = "get"
	OpInsert   = "insert"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpFunction = "function"
)

var validOperations = map[string]bool{
	OpFind: true, OpCount: true, OpGet: true, OpInsert: true,
	OpUpdate: true, OpDelete: true, OpFunction: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !validOperations[step.Operation] {
			return fmt.Errorf("steps[%d]: unknown operation %q", i, step.Operation)
		}
		if step.Path == "" {
			return fmt.Errorf("steps[%d]: path is required", i)
		}
		if step.Response.Status < 0 || step.Response.Status > 599 {
			return fmt.Errorf("steps[%d]: status %d out of range", i, step.Response.Status)
		}
		if step.Response.TransportError != "" && (step.Response.Status != 0 || step.Response.Body != "") {
			return fmt.Errorf("steps[%d]: transport_error excludes status and body", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertJournalContains:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for journal_contains", index)
		}
	case AssertJournalOrder:
		if len(a.Operations) == 0 {
			return fmt.Errorf("assertions[%d]: operations list is required for journal_order", index)
		}
	case AssertJournalCount:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for journal_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
