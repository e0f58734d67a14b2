package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed settings.cue
var settingsSchema string

func loadCUE(path string, s *Settings) error {
	if _, err := os.Stat(path); err != nil {
		return &Error{Code: ErrCodeRead, Path: path, Err: err}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)})
	if len(instances) == 0 {
		return &Error{Code: ErrCodeParse, Path: path, Err: errors.New("no CUE instances loaded")}
	}
	inst := instances[0]
	if inst.Err != nil {
		return &Error{Code: ErrCodeParse, Path: path, Err: inst.Err}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return &Error{Code: ErrCodeParse, Path: path, Err: err}
	}

	schema := ctx.CompileString(settingsSchema, cue.Filename("settings.cue"))
	if err := schema.Err(); err != nil {
		return &Error{Code: ErrCodeParse, Path: path, Err: fmt.Errorf("settings schema: %w", err)}
	}

	// Definitions are closed: unknown fields fail unification.
	unified := schema.LookupPath(cue.ParsePath("#Settings")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}

	if err := unified.Decode(s); err != nil {
		return &Error{Code: ErrCodeParse, Path: path, Err: err}
	}
	return nil
}
