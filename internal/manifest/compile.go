package manifest

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"microcosm/internal/proc"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile loads and compiles a manifest from disk.
func CompileFile(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return CompileString(string(src), path)
}

// CompileString compiles CUE source into a validated Manifest. filename is
// used for error positions only.
//
// Service names are NFC normalized so visually identical declarations
// collide instead of silently coexisting.
func CompileString(src, filename string) (*Manifest, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	servicesVal := v.LookupPath(cue.ParsePath("services"))
	if !servicesVal.Exists() {
		return nil, &CompileError{
			Field:   "services",
			Message: "services block is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := servicesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}
	for iter.Next() {
		svc, err := parseService(norm.NFC.String(iter.Label()), iter.Value())
		if err != nil {
			return nil, err
		}
		m.Services = append(m.Services, svc)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseService parses one service entry.
func parseService(name string, v cue.Value) (Service, error) {
	svc := Service{Name: name}

	pidVal := v.LookupPath(cue.ParsePath("pid"))
	if !pidVal.Exists() {
		return svc, &CompileError{
			Field:   fmt.Sprintf("services.%s.pid", name),
			Message: "pid is required",
			Pos:     v.Pos(),
		}
	}
	pid, err := pidVal.Int64()
	if err != nil {
		return svc, formatCUEError(err)
	}
	if pid < 0 {
		return svc, &CompileError{
			Field:   fmt.Sprintf("services.%s.pid", name),
			Message: "pid must be non-negative",
			Pos:     pidVal.Pos(),
		}
	}
	svc.PID = proc.PID(pid)

	depsVal := v.LookupPath(cue.ParsePath("deps"))
	if depsVal.Exists() {
		depIter, err := depsVal.List()
		if err != nil {
			return svc, formatCUEError(err)
		}
		for depIter.Next() {
			dep, err := depIter.Value().String()
			if err != nil {
				return svc, formatCUEError(err)
			}
			svc.Deps = append(svc.Deps, norm.NFC.String(dep))
		}
	}

	limitVal := v.LookupPath(cue.ParsePath("restart_limit"))
	if limitVal.Exists() {
		limit, err := limitVal.Int64()
		if err != nil {
			return svc, formatCUEError(err)
		}
		if limit < 0 {
			return svc, &CompileError{
				Field:   fmt.Sprintf("services.%s.restart_limit", name),
				Message: "restart_limit must be non-negative",
				Pos:     limitVal.Pos(),
			}
		}
		svc.RestartLimit = int(limit)
	}

	return svc, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
