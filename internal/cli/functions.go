package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/funcs"
)

// FunctionInfo describes one registered filter function.
type FunctionInfo struct {
	Name     string `json:"name"`
	Arity    int    `json:"arity"`
	Keyword  string `json:"keyword"`
	Receiver string `json:"receiver"`
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List filter functions and their protocol keywords",
		Long: `List the functions filters may call, with the protocol keyword each
compiles to and where the receiver is placed.

Example:
  odyn functions --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunctions(rootOpts, cmd)
		},
	}
}

func runFunctions(opts *RootOptions, cmd *cobra.Command) error {
	entries := funcs.Default().Entries()
	infos := make([]FunctionInfo, len(entries))
	for i, e := range entries {
		receiver := "first"
		if e.Receiver == funcs.ReceiverLast {
			receiver = "last"
		}
		infos[i] = FunctionInfo{Name: e.Name, Arity: e.Arity, Keyword: e.Keyword, Receiver: receiver}
	}

	if opts.Format == "json" {
		return newFormatter(cmd, opts).Success(infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tARITY\tKEYWORD\tRECEIVER")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", info.Name, info.Arity, info.Keyword, info.Receiver)
	}
	return w.Flush()
}
