package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit     int
	State     string
	Operation string
}

// HistoryEntry is one journal row as printed.
type HistoryEntry struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	State      string `json:"state"`
	Outcome    string `json:"outcome,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Records    int    `json:"records,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the request journal",
		Long: `Show recent requests recorded in the journal database.

Examples:
  odyn history --journal ./odyn.db
  odyn history --journal ./odyn.db --limit 5 --state transport_error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "most recent requests to show (0 = all)")
	cmd.Flags().StringVar(&opts.State, "state", "", "only requests in this state")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "only this operation (find, get, insert, ...)")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	s, err := opts.settings()
	if err != nil {
		return err
	}
	if s.Journal == "" {
		return NewExitError(ExitCommandError, "journal required (--journal or journal in config)")
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d", opts.Limit))
	}

	st, err := store.Open(s.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to open journal %s", s.Journal), err)
	}
	defer st.Close()

	rows, err := st.List(cmd.Context(), store.ListOptions{
		Limit:     opts.Limit,
		State:     opts.State,
		Operation: opts.Operation,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	entries := make([]HistoryEntry, len(rows))
	for i, r := range rows {
		entries[i] = HistoryEntry{
			Seq:        r.Seq,
			ID:         r.ID,
			Operation:  r.Operation,
			Method:     r.Method,
			URL:        r.URL,
			State:      r.State,
			Outcome:    r.Outcome,
			StatusCode: r.StatusCode,
			Records:    r.Records,
			Error:      r.Error,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339Nano),
			DurationMS: r.Duration.Milliseconds(),
		}
	}

	if opts.Format == "json" {
		return newFormatter(cmd, opts.RootOptions).Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No requests recorded.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tOPERATION\tSTATE\tSTATUS\tURL")
	for _, e := range entries {
		status := e.Outcome
		if e.Error != "" {
			status = e.Error
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d %s\t%s %s\n", e.Seq, e.Operation, e.State, e.StatusCode, status, e.Method, e.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts, err := st.Count(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}
	states := make([]string, 0, len(counts))
	total := 0
	for state, n := range counts {
		states = append(states, fmt.Sprintf("%s %d", state, n))
		total += n
	}
	sort.Strings(states)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d request(s) journaled: %s\n", total, strings.Join(states, ", "))
	return nil
}
