package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Request schemas ship inside the binary so deployments carry no sidecar files.
//
//go:embed schemas/*.json
var schemaFS embed.FS

// bodySchema wraps a compiled schema with the error flattening handlers need.
type bodySchema struct {
	schema *jsonschema.Schema
}

// requestValidator holds one compiled schema per mutating endpoint.
type requestValidator struct {
	create  bodySchema
	replace bodySchema
	patch   bodySchema
}

// newRequestValidator compiles the embedded schemas; a failure here is a
// packaging bug, so construction surfaces it instead of handlers.
func newRequestValidator() (*requestValidator, error) {
	compiler := jsonschema.NewCompiler()
	for _, name := range []string{"create.json", "replace.json", "patch.json"} {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	v := &requestValidator{}
	for name, dst := range map[string]*bodySchema{
		"create.json":  &v.create,
		"replace.json": &v.replace,
		"patch.json":   &v.patch,
	} {
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		dst.schema = schema
	}
	return v, nil
}

// check validates raw JSON against the schema. It returns per-field detail
// and a summary error when the body is rejected, or (nil, nil) when it passes.
func (b bodySchema) check(raw []byte) ([]FieldError, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.New("request body is not valid JSON")
	}
	if err := b.schema.Validate(doc); err != nil {
		return flattenSchemaError(err), errors.New("request body failed validation")
	}
	return nil, nil
}

// flattenSchemaError walks the validation tree down to leaf causes so each
// offending member is reported once.
func flattenSchemaError(err error) []FieldError {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldError{{Field: "body", Reason: err.Error()}}
	}
	var fields []FieldError
	collectSchemaErrors(&fields, ve)
	return fields
}

func collectSchemaErrors(fields *[]FieldError, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		*fields = append(*fields, FieldError{
			Field:  fieldFromLocation(ve.InstanceLocation),
			Reason: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaErrors(fields, cause)
	}
}

// fieldFromLocation turns a JSON pointer like /title into a field name.
func fieldFromLocation(loc string) string {
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return "body"
	}
	return strings.ReplaceAll(loc, "/", ".")
}
