package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resultSchemaURL = "schema://pbox/result.json"

// resultSchemaJSON describes the [exitCode, writes, trace] tuple written
// by the tracer.
const resultSchemaJSON = `{
  "type": "array",
  "prefixItems": [
    {"type": "integer"},
    {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    {
      "type": "object",
      "propertyNames": {"pattern": "^R?[0-9]+$"},
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "#": {"type": "string"},
            "$": {"type": "string"},
            "begin_loop": {"type": "string"},
            "end_loop": {"type": "string"}
          }
        }
      }
    }
  ],
  "minItems": 3,
  "maxItems": 3
}`

// ResultSchema validates tracer output before it is decoded.
type ResultSchema struct {
	schema *jsonschema.Schema
}

var compileResultSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(resultSchemaURL, strings.NewReader(resultSchemaJSON)); err != nil {
		return nil, err
	}

	return compiler.Compile(resultSchemaURL)
})

// NewResultSchema compiles the tracer output schema.
func NewResultSchema() (*ResultSchema, error) {
	schema, err := compileResultSchema()
	if err != nil {
		return nil, fmt.Errorf("compile result schema: %w", err)
	}

	return &ResultSchema{schema: schema}, nil
}

// Validate checks that data has the shape of a tracer tuple.
func (s *ResultSchema) Validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("validate result: %w", err)
	}

	return nil
}
