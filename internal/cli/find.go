package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/request"
	"github.com/roach88/odyn/internal/runner"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Filters FilterFlags
	Top     int
	Skip    int
	Count   bool
	Select  []string
	Expand  []string
	OrderBy []string
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Query a collection",
		Long: `Query a collection and print the decoded records.

Exit codes:
  0 - Request completed (including degraded non-200 responses)
  1 - Transport or decode failure
  2 - Command error (bad flags, missing URL)

Examples:
  odyn find Products --url https://services.odata.org/V2/Northwind/Northwind.svc
  odyn find Products --gt UnitPrice=20 --top 5 --count
  odyn find Orders --select OrderID,ShipCity --expand Customer --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], cmd)
		},
	}

	opts.Filters.register(cmd)
	cmd.Flags().IntVar(&opts.Top, "top", -1, "maximum number of records ($top)")
	cmd.Flags().IntVar(&opts.Skip, "skip", -1, "records to skip ($skip)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "request the total count ($inlinecount)")
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "fields to return ($select)")
	cmd.Flags().StringSliceVar(&opts.Expand, "expand", nil, "navigation properties to inline ($expand)")
	cmd.Flags().StringSliceVar(&opts.OrderBy, "orderby", nil, "sort order ($orderby), e.g. 'UnitPrice desc'")

	return cmd
}

func runFind(opts *FindOptions, collection string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	node, err := opts.Filters.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	b := sess.request().Collection(collection).Filter(node).Top(opts.Top).Skip(opts.Skip)
	if len(opts.Select) > 0 {
		b.Select(opts.Select...)
	}
	if len(opts.Expand) > 0 {
		b.Expand(opts.Expand...)
	}
	if len(opts.OrderBy) > 0 {
		b.OrderBy(opts.OrderBy...)
	}
	if opts.Count {
		b.InlineCount()
	}
	req, err := b.BuildGet()
	if err != nil {
		return out.fail(CodeBadFilter, "failed to build request", err)
	}

	return printResult(cmd, out, sess, req, runner.FindOptions{SetTotalCount: opts.Count})
}

// printResult runs a find and prints its records.
func printResult(cmd *cobra.Command, out *OutputFormatter, sess *session, req *request.Prepared, findOpts runner.FindOptions) error {
	res, err := sess.runner.FindEntries(cmd.Context(), req, findOpts)
	if err != nil {
		return out.fail(CodeRequestFailed, "request failed", err)
	}
	return printRecords(out, res, findOpts.SetTotalCount)
}

func printRecords(out *OutputFormatter, res *runner.Result, withCount bool) error {
	records, err := res.Collect()
	if err != nil {
		return out.fail(CodeDecodeFailed, "failed to decode response", err)
	}
	if herr := res.HTTPError(); herr != nil {
		out.VerboseLog("degraded: %v", herr)
	}

	set := RecordSet{
		Records: dropNil(records),
		Outcome: res.Outcome.String(),
		Status:  res.StatusCode,
	}
	if withCount {
		n := res.TotalCount()
		set.TotalCount = &n
	}
	return out.Records(set, res.ID)
}

// dropNil removes the placeholder record of a suppressed not-found.
func dropNil(records []*feed.PropertyMap) []*feed.PropertyMap {
	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
