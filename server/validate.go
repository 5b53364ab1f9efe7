package server

import (
	"fmt"
	"math"

	"github.com/denser-ai/toolfleet/mcp"
)

// ValidateArgs checks the supplied arguments against the schema and returns
// the argument map the implementation will see: supplied values plus defaults
// for absent optional parameters. Validation failures never reach the
// implementation.
func ValidateArgs(schema mcp.InputSchema, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(schema.Properties))

	for name, value := range args {
		prop, known := schema.Properties[name]
		if !known {
			return nil, fmt.Errorf("unknown argument %q", name)
		}
		if err := checkValue(name, prop, value); err != nil {
			return nil, err
		}
		out[name] = value
	}

	for _, name := range schema.Required {
		if _, present := out[name]; !present {
			return nil, fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, prop := range schema.Properties {
		if _, present := out[name]; !present && prop.Default != nil {
			out[name] = jsonValue(prop.Default)
		}
	}

	return out, nil
}

func checkValue(name string, prop mcp.Property, value any) error {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return typeError(name, prop.Type, value)
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, s) {
			return fmt.Errorf("argument %q must be one of %v, got %q", name, prop.Enum, s)
		}
	case "integer":
		f, ok := asNumber(value)
		if !ok || f != math.Trunc(f) {
			return typeError(name, prop.Type, value)
		}
		return checkBounds(name, prop, f)
	case "number":
		f, ok := asNumber(value)
		if !ok {
			return typeError(name, prop.Type, value)
		}
		return checkBounds(name, prop, f)
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeError(name, prop.Type, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return typeError(name, prop.Type, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return typeError(name, prop.Type, value)
		}
	}
	return nil
}

func checkBounds(name string, prop mcp.Property, f float64) error {
	if prop.Minimum != nil && f < *prop.Minimum {
		return fmt.Errorf("argument %q must be >= %v, got %v", name, *prop.Minimum, f)
	}
	if prop.Maximum != nil && f > *prop.Maximum {
		return fmt.Errorf("argument %q must be <= %v, got %v", name, *prop.Maximum, f)
	}
	return nil
}

func typeError(name, want string, value any) error {
	return fmt.Errorf("argument %q must be a %s, got %T", name, want, value)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// asNumber accepts the numeric shapes arguments arrive in: float64 from JSON
// decoding and int from Go callers.
func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// jsonValue normalizes schema defaults to the types JSON decoding produces,
// so implementations see the same shapes either way.
func jsonValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
