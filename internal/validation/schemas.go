package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// behaviorRecordSchema guards POST /behavior/record bodies before they reach
// struct binding, so malformed payloads are rejected with field-level detail
// instead of a bare bind error. Unknown fields pass through untouched.
const behaviorRecordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "BehaviorRecord",
	"type": "object",
	"required": ["user_id", "content_id", "action"],
	"properties": {
		"user_id": {"type": "integer", "minimum": 1},
		"content_id": {"type": "integer", "minimum": 1},
		"action": {"type": "string", "pattern": "^(view|like|collect|comment|share|follow)$"},
		"weight": {"type": "number", "minimum": 0, "maximum": 1},
		"source": {"type": "string", "maxLength": 100},
		"session_id": {"type": "string", "maxLength": 100},
		"extra": {"type": "object"},
		"timestamp": {"type": "string", "format": "date-time"}
	}
}`

// SchemaValidator holds the embedded JSON schemas, compiled once at startup.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaValidator compiles every embedded schema. A compile error here is
// a defect in the schema text, not a runtime condition.
func NewSchemaValidator() (*SchemaValidator, error) {
	sources := map[string]string{
		"behavior-record": behaviorRecordSchema,
	}

	sv := &SchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema, len(sources)),
	}
	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		sv.schemas[name] = schema
	}

	return sv, nil
}

// ValidateBehaviorRecord validates a behavior-record body against its schema.
// The data may be a raw string, raw bytes, or any JSON-marshalable value.
func (sv *SchemaValidator) ValidateBehaviorRecord(data interface{}) *ValidationResult {
	return sv.validate("behavior-record", data)
}

// validate performs the actual validation against a named schema
func (sv *SchemaValidator) validate(schemaName string, data interface{}) *ValidationResult {
	schema, exists := sv.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Message: fmt.Sprintf("Schema '%s' not found", schemaName),
				Code:    "SCHEMA_NOT_FOUND",
			}},
		}
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := data.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return &ValidationResult{
				Valid: false,
				Errors: []ValidationError{{
					Field:   "data",
					Message: fmt.Sprintf("Failed to marshal data to JSON: %v", err),
					Code:    "JSON_MARSHAL_ERROR",
				}},
			}
		}
		documentLoader = gojsonschema.NewBytesLoader(jsonBytes)
	}

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "body",
				Message: fmt.Sprintf("Request body must be valid JSON: %v", err),
				Code:    "INVALID_JSON",
			}},
		}
	}

	validationResult := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}
	for _, resultErr := range result.Errors() {
		validationResult.Errors = append(validationResult.Errors, ValidationError{
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
			Code:    "VALIDATION_ERROR",
			Value:   resultErr.Value(),
		})
	}

	return validationResult
}

// ValidationResult represents the result of a validation operation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// Details renders the errors as the details object of an API error response:
// the full error list plus a per-field message index for client convenience.
func (vr *ValidationResult) Details() map[string]interface{} {
	if vr.Valid {
		return nil
	}

	fieldErrors := make(map[string][]string)
	for _, err := range vr.Errors {
		if err.Field != "" {
			fieldErrors[err.Field] = append(fieldErrors[err.Field], err.Message)
		}
	}

	details := map[string]interface{}{
		"validation_errors": vr.Errors,
	}
	if len(fieldErrors) > 0 {
		details["field_errors"] = fieldErrors
	}
	return details
}
