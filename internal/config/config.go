// Package config loads client settings from YAML or CUE files.
//
// The format is chosen by file extension: .yaml/.yml are decoded with strict
// field checking, .cue files are unified with an embedded schema before
// decoding. Unset fields keep their defaults; command-line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/odyn/internal/runner"
)

// Settings configure a client session.
type Settings struct {
	// URL is the service root, e.g. "https://services.odata.org/V2/Northwind/Northwind.svc".
	URL string `yaml:"url" json:"url"`

	// Timeout bounds a whole request, as a Go duration string.
	Timeout string `yaml:"timeout" json:"timeout"`

	IgnoreResourceNotFound bool   `yaml:"ignore_resource_not_found" json:"ignore_resource_not_found"`
	IncludeResourceType    bool   `yaml:"include_resource_type" json:"include_resource_type"`
	RecordElement          string `yaml:"record_element" json:"record_element"`

	// Format is sent as $format when non-empty ("json" or "atom").
	Format string `yaml:"format" json:"format"`

	// Journal is the request journal database path. Empty disables it.
	Journal string `yaml:"journal" json:"journal"`

	Headers  map[string]string `yaml:"headers" json:"headers"`
	Username string            `yaml:"username" json:"username"`
	Password string            `yaml:"password" json:"password"`
}

// DefaultTimeout is used when Settings.Timeout is empty.
const DefaultTimeout = 30 * time.Second

// Default returns the built-in settings.
func Default() Settings {
	return Settings{Timeout: DefaultTimeout.String()}
}

// Error codes for configuration failures.
const (
	ErrCodeRead        = "CONFIG_READ"
	ErrCodeParse       = "CONFIG_PARSE"
	ErrCodeInvalid     = "CONFIG_INVALID"
	ErrCodeUnsupported = "CONFIG_UNSUPPORTED"
)

// Error is a configuration failure.
type Error struct {
	Code  string
	Path  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Field != "" {
		b.WriteString(" field " + e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeInvalid
}

// Load reads settings from path on top of Default and validates them.
func Load(path string) (Settings, error) {
	s := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = loadYAML(path, &s)
	case ".cue":
		err = loadCUE(path, &s)
	default:
		return s, &Error{Code: ErrCodeUnsupported, Path: path, Err: fmt.Errorf("unsupported config format %q", filepath.Ext(path))}
	}
	if err != nil {
		return s, err
	}
	if err := s.Validate(); err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return s, err
	}
	return s, nil
}

// Validate checks field values.
func (s Settings) Validate() error {
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return &Error{Code: ErrCodeInvalid, Field: "url", Err: err}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return &Error{Code: ErrCodeInvalid, Field: "url", Err: fmt.Errorf("scheme must be http or https, got %q", u.Scheme)}
		}
	}
	if _, err := s.TimeoutDuration(); err != nil {
		return &Error{Code: ErrCodeInvalid, Field: "timeout", Err: err}
	}
	switch s.Format {
	case "", "json", "atom":
	default:
		return &Error{Code: ErrCodeInvalid, Field: "format", Err: fmt.Errorf("must be json or atom, got %q", s.Format)}
	}
	if s.Password != "" && s.Username == "" {
		return &Error{Code: ErrCodeInvalid, Field: "username", Err: errors.New("password set without username")}
	}
	return nil
}

// TimeoutDuration parses Timeout; empty means DefaultTimeout.
func (s Settings) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// RunnerSettings extracts the runner's behavioural switches.
func (s Settings) RunnerSettings() runner.Settings {
	return runner.Settings{
		IgnoreResourceNotFound: s.IgnoreResourceNotFound,
		IncludeResourceType:    s.IncludeResourceType,
		RecordElement:          s.RecordElement,
	}
}
