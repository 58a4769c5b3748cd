package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/multimethod/internal/compiler"
	"github.com/roach88/multimethod/internal/ir"
)

// LoadDefinitions reads and compiles a CUE definitions file.
//
// A missing or unreadable file is a command error (exit code 2); a file
// that fails to compile is a validation failure (exit code 1).
func LoadDefinitions(path string) ([]*ir.GenericSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot read definitions file", err)
	}

	v := cuecontext.New().CompileString(string(data), cue.Filename(path))
	specs, err := compiler.CompileDefinitions(v)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "definitions failed to compile", err)
	}
	return specs, nil
}

// findGeneric returns the spec with the given name.
func findGeneric(specs []*ir.GenericSpec, name string) (*ir.GenericSpec, error) {
	for _, spec := range specs {
		if spec.Name == name {
			return spec, nil
		}
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("generic %q is not defined", name))
}
