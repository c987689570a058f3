// Pre-dispatch argument validation against a tool's declared
// input_schema, with narrow numeric/boolean-from-string coercion so
// that callers passing loosely-typed JSON (e.g. a number as a string)
// still succeed where the type is unambiguous.
package capability

import (
	"fmt"
	"strconv"
)

// ValidateArgs checks args against schema (a JSON-Schema-like map with
// "type": "object", "properties": {...}, "required": [...]), coercing
// string-typed numbers/booleans into their declared type in place.
func ValidateArgs(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}

	required, _ := schema["required"].([]any)
	for _, r := range required {
		name, _ := r.(string)
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for name, rawSpec := range props {
		spec, ok := rawSpec.(map[string]any)
		if !ok {
			continue
		}
		val, present := args[name]
		if !present {
			continue
		}
		wantType, _ := spec["type"].(string)
		coerced, err := coerce(val, wantType)
		if err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
		args[name] = coerced
	}
	return nil
}

func coerce(val any, wantType string) (any, error) {
	switch wantType {
	case "", "string":
		return val, nil
	case "number", "integer":
		switch v := val.(type) {
		case float64, int, int64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("expected %s, got non-numeric string %q", wantType, v)
			}
			if wantType == "integer" {
				return int64(f), nil
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected %s, got %T", wantType, val)
		}
	case "boolean":
		switch v := val.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got non-boolean string %q", v)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected boolean, got %T", val)
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return nil, fmt.Errorf("expected array, got %T", val)
		}
		return val, nil
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return nil, fmt.Errorf("expected object, got %T", val)
		}
		return val, nil
	default:
		return val, nil
	}
}
