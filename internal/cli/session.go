package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/odyn/internal/config"
	"github.com/roach88/odyn/internal/request"
	"github.com/roach88/odyn/internal/runner"
	"github.com/roach88/odyn/internal/store"
	"github.com/roach88/odyn/internal/transport"
)

// session is everything a request command needs: resolved settings, a
// runner wired to the transport and the optional journal.
type session struct {
	settings config.Settings
	runner   *runner.Runner
	journal  *store.Store
	logger   *slog.Logger
}

func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	s, err := opts.settings()
	if err != nil {
		return nil, err
	}
	if s.URL == "" {
		return nil, NewExitError(ExitCommandError, "service URL required (--url or url in config)")
	}

	logger := opts.logger(cmd)
	t := opts.Transport
	if t == nil {
		timeout, _ := s.TimeoutDuration()
		httpOpts := []transport.HTTPOption{
			transport.WithTimeout(timeout),
			transport.WithLogger(logger),
			transport.WithUserAgent("odyn/" + Version),
		}
		for k, v := range s.Headers {
			httpOpts = append(httpOpts, transport.WithHeader(k, v))
		}
		if s.Username != "" {
			httpOpts = append(httpOpts, transport.WithBasicAuth(s.Username, s.Password))
		}
		t = transport.NewHTTP(httpOpts...)
	}

	sess := &session{settings: s, logger: logger}
	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	if s.Journal != "" {
		st, err := store.Open(s.Journal)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open journal %s", s.Journal), err)
		}
		sess.journal = st
		runnerOpts = append(runnerOpts, runner.WithJournal(st))
	}
	sess.runner = runner.New(t, s.RunnerSettings(), runnerOpts...)
	return sess, nil
}

// request starts a builder against the service root with the configured
// $format.
func (s *session) request() *request.Builder {
	b := request.NewBuilder(s.settings.URL, nil)
	if s.settings.Format != "" {
		b.Format(s.settings.Format)
	}
	return b
}

func (s *session) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}
