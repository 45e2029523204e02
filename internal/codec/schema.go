package codec

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaErr  error
)

// schema compiles the embedded CUE schema once per process.
func schema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		schemaVal = ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		schemaErr = schemaVal.Err()
	})
	return schemaVal, schemaErr
}

// validateUnit checks raw JSON against one of the schema definitions
// (#Project, #Styles, #Page, #Legacy). A schema violation is reported
// with the offending definition so operators can tell which file shape
// broke.
func validateUnit(data []byte, def string) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v := s.LookupPath(cue.ParsePath(def))
	if err := v.Err(); err != nil {
		return fmt.Errorf("lookup schema %s: %w", def, err)
	}
	if err := cuejson.Validate(data, v); err != nil {
		return fmt.Errorf("schema %s: %w", def, err)
	}
	return nil
}
