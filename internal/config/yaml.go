package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

func loadYAML(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Code: ErrCodeRead, Path: path, Err: err}
	}

	// Reject unknown fields so typos like "ignore_not_found" are caught.
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Code: ErrCodeParse, Path: path, Err: err}
	}
	return nil
}
