package mcp

// Tool describes a callable tool as advertised by a tool server.
// Descriptors are immutable once registered.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON-schema-shaped parameter contract for a tool.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes a single tool parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// ObjectSchema returns an object schema over the given properties.
// required lists the property names a caller must supply.
func ObjectSchema(properties map[string]Property, required ...string) InputSchema {
	if properties == nil {
		properties = map[string]Property{}
	}
	if required == nil {
		required = []string{}
	}
	return InputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// IsRequired reports whether the named parameter is listed as required.
func (s InputSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
