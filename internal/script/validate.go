package script

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// cue.Value is not safe for concurrent evaluation.
	validateMu sync.Mutex
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile script schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Script"))
	})
	return schemaCtx, schemaDef, schemaErr
}

// Validate checks a YAML or JSON document against the script schema.
// Every violation is returned, not only the first.
func Validate(data []byte) []error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []error{&Error{Code: ErrCodeSyntax, Message: err.Error()}}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx, def, err := loadSchema()
	if err != nil {
		return []error{err}
	}

	validateMu.Lock()
	defer validateMu.Unlock()

	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return schemaErrors(err)
	}
	return nil
}

func schemaErrors(err error) []error {
	cueErrs := errors.Errors(err)
	if len(cueErrs) == 0 {
		return []error{&Error{Code: ErrCodeSchema, Message: err.Error()}}
	}
	out := make([]error, 0, len(cueErrs))
	for _, e := range cueErrs {
		format, args := e.Msg()
		out = append(out, &Error{
			Code:    ErrCodeSchema,
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return out
}
