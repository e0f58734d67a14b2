package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/runner"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Select []string
	Expand []string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <collection> <key>",
		Short: "Fetch a single entry by key",
		Long: `Fetch a single entry by key.

The key is parsed like a filter value: numbers stay numeric, anything else
is sent as a quoted string. Quote explicitly to force a string ('10248').

Examples:
  odyn get Products 1
  odyn get Customers ALFKI --expand Orders`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "fields to return ($select)")
	cmd.Flags().StringSliceVar(&opts.Expand, "expand", nil, "navigation properties to inline ($expand)")
	return cmd
}

func runGet(opts *GetOptions, collection, key string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	b := sess.request().Collection(collection).Key(parseValue(key))
	if len(opts.Select) > 0 {
		b.Select(opts.Select...)
	}
	if len(opts.Expand) > 0 {
		b.Expand(opts.Expand...)
	}
	req, err := b.BuildGet()
	if err != nil {
		return out.fail(CodeBadFilter, "failed to build request", err)
	}

	res, err := sess.runner.GetEntry(cmd.Context(), req)
	if err != nil {
		if errors.Is(err, runner.ErrNoEntry) {
			return out.fail(CodeDecodeFailed, "no entry", err)
		}
		return out.fail(CodeRequestFailed, "request failed", err)
	}

	set := RecordSet{Outcome: res.Outcome.String(), Status: res.StatusCode}
	if res.Entry != nil {
		set.Records = []*feed.PropertyMap{res.Entry}
	}
	return out.Records(set, res.ID)
}
