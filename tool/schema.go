package tool

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hupe1980/agentcoord/core"
)

// CreateSchema creates a JSON schema from a Go struct using reflection.
// Non-pointer fields without omitempty are required.
func CreateSchema(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	properties := make(map[string]any)
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name, omitEmpty := parseJSONTag(field.Name, jsonTag)

		fieldSchema := map[string]any{
			"type": jsonType(field.Type),
		}
		if description := field.Tag.Get("description"); description != "" {
			fieldSchema["description"] = description
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			values := strings.Split(enum, ",")
			items := make([]any, len(values))
			for i, v := range values {
				items[i] = strings.TrimSpace(v)
			}
			fieldSchema["enum"] = items
		}
		properties[name] = fieldSchema

		if !omitEmpty && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateParameters validates params against a JSON schema subset: required
// fields, primitive types and string enums. Extra fields are allowed.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, field := range requiredFields(schema["required"]) {
		if _, exists := params[field]; !exists {
			return core.NewValidationError(field, nil, "required field is missing")
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for field, value := range params {
		propMap, ok := properties[field].(map[string]any)
		if !ok {
			continue
		}

		expected, _ := propMap["type"].(string)
		if !isValidType(value, expected) {
			return core.NewValidationError(field, value, fmt.Sprintf("expected type %s, got %T", expected, value))
		}

		if enum, ok := propMap["enum"].([]any); ok && value != nil && !containsValue(enum, value) {
			return core.NewValidationError(field, value, fmt.Sprintf("must be one of %v", enum))
		}
	}
	return nil
}

// requiredFields accepts both []string (Go literals) and []any (decoded JSON).
func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseJSONTag(fallback, tag string) (string, bool) {
	if tag == "" {
		return fallback, false
	}
	parts := strings.Split(tag, ",")
	name := fallback
	if parts[0] != "" {
		name = parts[0]
	}
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) == "omitempty" {
			return name, true
		}
	}
	return name, false
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

func isValidType(value any, expected string) bool {
	if value == nil {
		return true
	}

	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // decoded JSON numbers
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func containsValue(enum []any, v any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}
