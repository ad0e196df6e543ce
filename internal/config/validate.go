// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationKind classifies a settings validation failure the way
// spec.md §4.6 requires: missing_default, wrong_type, required, or
// additional_property.
type ValidationKind string

const (
	ValidationMissingDefault ValidationKind = "missing_default"
	ValidationWrongType      ValidationKind = "wrong_type"
	ValidationRequired       ValidationKind = "required"
	ValidationAdditionalProp ValidationKind = "additional_property"
)

// ValidationError reports one schema violation with a JSON Pointer path
// into the offending document, matching set_settings's error contract.
type ValidationError struct {
	Pointer string
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("settings validation failed at %s: %s (%s)", e.Pointer, e.Message, e.Kind)
}

var settingsSchema = gojsonschema.NewBytesLoader(settingsSchemaJSON)

// ValidateDocument checks doc against the embedded schema, returning a
// *ValidationError for the first violation found.
func ValidateDocument(doc Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal settings document: %w", err)
	}
	return validateRaw(b)
}

// validateRaw checks a raw JSON document (e.g. the merged-but-not-yet-
// typed koanf view) against the embedded schema. Validating the raw
// form, rather than a Document already round-tripped through
// encoding/json, is what lets unrecognized keys surface as
// additional_property instead of being silently dropped.
func validateRaw(b []byte) error {
	result, err := gojsonschema.Validate(settingsSchema, gojsonschema.NewBytesLoader(b))
	if err != nil {
		return fmt.Errorf("run settings schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	return translateSchemaError(result.Errors()[0])
}

// translateSchemaError converts a gojsonschema result error (dot/bracket
// "field" path) into our JSON-Pointer ValidationError.
func translateSchemaError(e gojsonschema.ResultError) *ValidationError {
	return &ValidationError{
		Pointer: toJSONPointer(e.Field()),
		Kind:    classifyError(e),
		Message: e.Description(),
	}
}

func classifyError(e gojsonschema.ResultError) ValidationKind {
	switch e.Type() {
	case "required":
		return ValidationRequired
	case "invalid_type", "number_any_of", "enum":
		return ValidationWrongType
	case "additional_property_not_allowed":
		return ValidationAdditionalProp
	default:
		return ValidationWrongType
	}
}

// toJSONPointer rewrites gojsonschema's "(root).admin.authorizedUsers"
// style field path into an RFC 6901 JSON Pointer.
func toJSONPointer(field string) string {
	field = strings.TrimPrefix(field, "(root)")
	if field == "" {
		return "/"
	}
	field = strings.TrimPrefix(field, ".")
	segments := strings.Split(field, ".")
	return "/" + strings.Join(segments, "/")
}
