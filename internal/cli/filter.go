package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/dynamic"
	"github.com/roach88/odyn/internal/expr"
	"github.com/roach88/odyn/internal/querytext"
)

// FilterFlags collect FIELD=VALUE predicates. All predicates are combined
// with and, in flag order within each operator.
type FilterFlags struct {
	Eq, Ne, Gt, Ge, Lt, Le         []string
	Contains, StartsWith, EndsWith []string
}

func (f *FilterFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringArrayVar(&f.Eq, "eq", nil, "FIELD=VALUE equality predicate")
	fl.StringArrayVar(&f.Ne, "ne", nil, "FIELD=VALUE inequality predicate")
	fl.StringArrayVar(&f.Gt, "gt", nil, "FIELD=VALUE greater-than predicate")
	fl.StringArrayVar(&f.Ge, "ge", nil, "FIELD=VALUE greater-or-equal predicate")
	fl.StringArrayVar(&f.Lt, "lt", nil, "FIELD=VALUE less-than predicate")
	fl.StringArrayVar(&f.Le, "le", nil, "FIELD=VALUE less-or-equal predicate")
	fl.StringArrayVar(&f.Contains, "contains", nil, "FIELD=TEXT substring predicate")
	fl.StringArrayVar(&f.StartsWith, "startswith", nil, "FIELD=TEXT prefix predicate")
	fl.StringArrayVar(&f.EndsWith, "endswith", nil, "FIELD=TEXT suffix predicate")
}

// Build returns the combined predicate, or nil when no flag was given.
// Field names may address nested members with '/' (Category/CategoryName).
func (f *FilterFlags) Build() (expr.Node, error) {
	root := dynamic.Root()
	acc := root

	compare := func(specs []string, op func(h dynamic.Handle, v any) dynamic.Handle) error {
		for _, raw := range specs {
			field, value, err := splitPredicate(raw)
			if err != nil {
				return err
			}
			h := op(root.Path(strings.Split(field, "/")...), parseValue(value))
			if acc.IsRoot() {
				acc = h
			} else {
				acc = acc.And(h)
			}
		}
		return nil
	}
	call := func(name string) func(h dynamic.Handle, v any) dynamic.Handle {
		return func(h dynamic.Handle, v any) dynamic.Handle {
			// Text predicates always compare against a string.
			return h.MustCall(name, fmt.Sprint(v))
		}
	}

	steps := []struct {
		specs []string
		op    func(h dynamic.Handle, v any) dynamic.Handle
	}{
		{f.Eq, dynamic.Handle.Eq},
		{f.Ne, dynamic.Handle.Ne},
		{f.Gt, dynamic.Handle.Gt},
		{f.Ge, dynamic.Handle.Ge},
		{f.Lt, dynamic.Handle.Lt},
		{f.Le, dynamic.Handle.Le},
		{f.Contains, call("Contains")},
		{f.StartsWith, call("StartsWith")},
		{f.EndsWith, call("EndsWith")},
	}
	for _, s := range steps {
		if err := compare(s.specs, s.op); err != nil {
			return nil, err
		}
	}
	return acc.Node(), nil
}

func splitPredicate(raw string) (string, string, error) {
	field, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(field) == "" {
		return "", "", fmt.Errorf("invalid predicate %q: want FIELD=VALUE", raw)
	}
	return strings.TrimSpace(field), value, nil
}

// parseValue reads a command-line literal. Quoted text ('1997') stays a
// string; guid'...' and datetime'...' use the protocol prefixes.
func parseValue(text string) any {
	if inner, ok := cutQuoted(text, "guid"); ok {
		if id, err := uuid.Parse(inner); err == nil {
			return id
		}
	}
	if inner, ok := cutQuoted(text, "datetime"); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05", inner); err == nil {
			return ts
		}
	}
	if inner, ok := cutQuoted(text, ""); ok {
		return inner
	}
	switch text {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	if ts, err := time.Parse(time.RFC3339, text); err == nil {
		return ts
	}
	return text
}

func cutQuoted(text, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(text, prefix+"'")
	if !ok || len(rest) == 0 || !strings.HasSuffix(rest, "'") {
		return "", false
	}
	return strings.TrimSuffix(rest, "'"), true
}

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Filters FilterFlags
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the compiled $filter expression",
		Long: `Compile predicates to $filter text without contacting a service.

Examples:
  odyn filter --eq ProductName=Chai
  odyn filter --gt UnitPrice=20 --contains ProductName=ch
  odyn filter --eq Category/CategoryName=Beverages --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, cmd)
		},
	}
	opts.Filters.register(cmd)
	return cmd
}

func runFilter(opts *FilterOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	node, err := opts.Filters.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	if node == nil {
		return NewExitError(ExitCommandError, "no predicates given")
	}

	text, err := querytext.NewCompiler(nil).Compile(node)
	if err != nil {
		return out.fail(CodeBadFilter, "failed to compile filter", err)
	}
	if opts.Format == "json" {
		return out.Success(map[string]string{"filter": text})
	}
	return out.Success(text)
}
