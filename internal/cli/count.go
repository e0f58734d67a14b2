package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/runner"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Filters FilterFlags
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <collection>",
		Short: "Count matching entries via the $count endpoint",
		Long: `Count matching entries via the collection's $count endpoint.

Examples:
  odyn count Products
  odyn count Products --eq Discontinued=true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}
	opts.Filters.register(cmd)
	return cmd
}

func runCount(opts *CountOptions, collection string, cmd *cobra.Command) error {
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

	// $count answers with bare text; a $format option would be rejected.
	req, err := sess.request().Format("").Collection(collection).Segment("$count").Filter(node).BuildGet()
	if err != nil {
		return out.fail(CodeBadFilter, "failed to build request", err)
	}

	res, err := sess.runner.FindEntries(cmd.Context(), req, runner.FindOptions{ScalarResult: true})
	if err != nil {
		return out.fail(CodeRequestFailed, "request failed", err)
	}
	var count any = int64(0)
	for rec, err := range res.Records() {
		if err != nil {
			return out.fail(CodeDecodeFailed, "failed to decode response", err)
		}
		if rec != nil {
			count = rec.Value(feed.ResultKey)
		}
		break
	}
	if opts.Format == "json" {
		return out.Success(map[string]any{"count": count, "outcome": res.Outcome.String()})
	}
	return out.Success(count)
}
