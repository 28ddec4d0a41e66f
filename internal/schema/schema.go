// Package schema validates inbound emission-factor, activity, and
// credit-project payloads against embedded JSON Schemas before they reach
// the store.
//
// Upserts are allow-listed field merges: additionalProperties is false on
// every schema, so a payload cannot smuggle unvalidated fields into
// persisted records.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// ValidationError aggregates the schema violations of one payload.
type ValidationError struct {
	Record   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Record, strings.Join(e.Problems, "; "))
}

var (
	compileOnce   sync.Once
	compileErr    error
	efSchema      *jsonschema.Schema
	activity      *jsonschema.Schema
	creditProject *jsonschema.Schema
)

func compile() {
	compiler := jsonschema.NewCompiler()

	compileSchemas := []struct {
		src string
		dst **jsonschema.Schema
	}{
		{emissionFactorSchema, &efSchema},
		{activitySchema, &activity},
		{creditProjectSchema, &creditProject},
	}
	for _, cs := range compileSchemas {
		s, err := compiler.Compile([]byte(cs.src))
		if err != nil {
			compileErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		*cs.dst = s
	}
}

func validate(name string, s *jsonschema.Schema, data []byte) error {
	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}

	verr := &ValidationError{Record: name}
	for field, detail := range result.Errors {
		verr.Problems = append(verr.Problems, fmt.Sprintf("%s: %v", field, detail))
	}
	if len(verr.Problems) == 0 {
		verr.Problems = append(verr.Problems, "schema validation failed")
	}
	return verr
}

// ValidateEmissionFactor checks an emission-factor upsert payload.
func ValidateEmissionFactor(data []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	return validate("emission factor", efSchema, data)
}

// ValidateActivity checks an activity create payload.
func ValidateActivity(data []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	return validate("activity", activity, data)
}

// ValidateCreditProject checks a credit-project upsert payload.
func ValidateCreditProject(data []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	return validate("credit project", creditProject, data)
}

const emissionFactorSchema = `{
  "type": "object",
  "required": ["key"],
  "additionalProperties": false,
  "properties": {
    "key": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "unit": {"type": "string"},
    "value": {"type": ["number", "null"]},
    "scope": {"type": "string"},
    "category": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "gwp_version": {"type": "string"},
    "methodology": {"type": "string"},
    "publisher": {"type": "string"},
    "document_title": {"type": "string"},
    "valid_from": {"type": ["string", "null"]},
    "valid_to": {"type": ["string", "null"]},
    "uncertainty_value": {"type": ["number", "null"]},
    "uncertainty_type": {"type": "string"},
    "meta": {"type": "object"},
    "activity_id_fields": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "properties": {
        "required": {"type": "array", "items": {"type": "string"}},
        "quantity_field": {"type": "string"},
        "formula": {
          "type": ["object", "null"],
          "additionalProperties": false,
          "required": ["expression"],
          "properties": {
            "expression": {"type": "string", "minLength": 1},
            "output": {"type": "string"},
            "unit": {"type": "string"}
          }
        }
      }
    },
    "gas_breakdown": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "properties": {
        "gases": {
          "type": "object",
          "additionalProperties": {"type": "number"}
        }
      }
    }
  }
}`

const activitySchema = `{
  "type": "object",
  "required": ["ef_key"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "ef_key": {"type": "string", "minLength": 1},
    "inputs": {"type": "object"},
    "scope": {"type": "string"},
    "period": {"type": ["string", "null"]},
    "note": {"type": ["string", "null"]}
  }
}`

const creditProjectSchema = `{
  "type": "object",
  "required": ["project_code"],
  "additionalProperties": false,
  "properties": {
    "project_code": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "methodology": {"type": "string"},
    "baseline_tco2e": {"type": "number"},
    "project_tco2e": {"type": "number"},
    "leakage_tco2e": {"type": "number"},
    "buffer_pct": {"type": "number", "minimum": 0, "maximum": 100},
    "vintage": {"type": "string"}
  }
}`
