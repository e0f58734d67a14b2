package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/config"
	"github.com/roach88/odyn/internal/transport"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
	URL     string
	Journal string

	// Transport overrides the HTTP transport (for testing).
	Transport transport.Transport
}

// Version is reported by --version and in the User-Agent header.
var Version = "0.1.0"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the odyn CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "odyn",
		Version: Version,
		Short: "odyn - schema-free OData client",
		Long: `A schema-free client for OData services.

Filters are built from field/operator/value flags and compiled to the
protocol's $filter syntax; responses in Atom, JSON or plain XML are decoded
into ordered property maps.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "settings file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "service root URL")
	cmd.PersistentFlags().StringVar(&opts.Journal, "journal", "", "request journal database")

	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewFunctionsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// settings loads the config file, if any, and applies flag overrides.
func (o *RootOptions) settings() (config.Settings, error) {
	s := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return s, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		s = loaded
	}
	if o.URL != "" {
		s.URL = o.URL
	}
	if o.Journal != "" {
		s.Journal = o.Journal
	}
	if err := s.Validate(); err != nil {
		return s, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	return s, nil
}

// logger writes to stderr; --verbose enables request-level debug logs.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
