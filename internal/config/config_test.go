package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	d, err := s.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, d)
	assert.NoError(t, s.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "odyn.yaml", `
url: https://services.odata.org/V2/Northwind/Northwind.svc
timeout: 5s
ignore_resource_not_found: true
include_resource_type: true
record_element: status
format: json
journal: /tmp/odyn.db
headers:
  X-Tenant: acme
username: admin
password: secret
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://services.odata.org/V2/Northwind/Northwind.svc", s.URL)
	assert.True(t, s.IgnoreResourceNotFound)
	assert.True(t, s.IncludeResourceType)
	assert.Equal(t, "status", s.RecordElement)
	assert.Equal(t, "json", s.Format)
	assert.Equal(t, "/tmp/odyn.db", s.Journal)
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, s.Headers)
	assert.Equal(t, "admin", s.Username)

	d, err := s.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	rs := s.RunnerSettings()
	assert.True(t, rs.IgnoreResourceNotFound)
	assert.True(t, rs.IncludeResourceType)
	assert.Equal(t, "status", rs.RecordElement)
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "odyn.yml", "url: http://localhost:8080/odata\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout.String(), s.Timeout)
	assert.False(t, s.IgnoreResourceNotFound)
}

func TestLoadYAMLEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.yaml", "")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadYAMLUnknownField(t *testing.T) {
	path := writeFile(t, "odyn.yaml", "ignore_not_found: true\n")

	_, err := Load(path)
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeParse, ce.Code)
	assert.Contains(t, err.Error(), "ignore_not_found")
}

func TestLoadYAMLInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad scheme", "url: ftp://example.com\n", "url"},
		{"bad timeout", "timeout: soon\n", "timeout"},
		{"negative timeout", "timeout: -1s\n", "timeout"},
		{"bad format", "format: xml\n", "format"},
		{"password without user", "password: secret\n", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "odyn.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, IsInvalid(err))
			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, path, ce.Path)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeRead, ce.Code)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "odyn.toml", "url = 'x'\n")
	_, err := Load(path)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnsupported, ce.Code)
}

func TestLoadCUE(t *testing.T) {
	path := writeFile(t, "odyn.cue", `
url:                       "https://services.odata.org/V2/Northwind/Northwind.svc"
timeout:                   "10s"
ignore_resource_not_found: true
format:                    "atom"
headers: "X-Tenant": "acme"
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://services.odata.org/V2/Northwind/Northwind.svc", s.URL)
	assert.Equal(t, "10s", s.Timeout)
	assert.True(t, s.IgnoreResourceNotFound)
	assert.Equal(t, "atom", s.Format)
	assert.Equal(t, "acme", s.Headers["X-Tenant"])
}

func TestLoadCUEUnknownField(t *testing.T) {
	path := writeFile(t, "odyn.cue", `ignore_not_found: true`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsInvalid(err))
}

func TestLoadCUESchemaViolation(t *testing.T) {
	path := writeFile(t, "odyn.cue", `format: "xml"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsInvalid(err))
}

func TestLoadCUESyntaxError(t *testing.T) {
	path := writeFile(t, "odyn.cue", `url: "unterminated`)

	_, err := Load(path)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeParse, ce.Code)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Code: ErrCodeInvalid, Path: "odyn.yaml", Field: "url", Err: assert.AnError}
	assert.Equal(t, "CONFIG_INVALID odyn.yaml field url: "+assert.AnError.Error(), err.Error())
}
