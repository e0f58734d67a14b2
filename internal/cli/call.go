package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Params []string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <function>",
		Short: "Execute a service operation",
		Long: `Execute a service operation and print its result.

Parameters are rendered as protocol literals, parsed like filter values.
Primitive results are printed under the "__result" key.

Examples:
  odyn call TopSellingProducts --param year=1997
  odyn call GetCustomerNames --param city='London'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "NAME=VALUE function parameter")
	return cmd
}

func runCall(opts *CallOptions, function string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	params := make(map[string]any, len(opts.Params))
	for _, p := range opts.Params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid parameter %q: want NAME=VALUE", p))
		}
		params[name] = parseValue(value)
	}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	req, err := sess.request().Function(function, params).BuildGet()
	if err != nil {
		return out.fail(CodeBadFilter, "failed to build request", err)
	}

	res, err := sess.runner.ExecuteFunction(cmd.Context(), req)
	if err != nil {
		return out.fail(CodeRequestFailed, "request failed", err)
	}
	return printRecords(out, res, false)
}
