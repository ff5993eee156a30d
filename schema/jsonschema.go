package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// JSONSchema converts a node into a JSON Schema document, which is how the
// expected output shape is described to model providers and API callers
func JSONSchema(n *Node) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: n.Description}
	switch n.Type {
	case String:
		s.Type = "string"
	case Number:
		s.Type = "number"
	case Boolean:
		s.Type = "boolean"
	case Enum:
		s.Type = "string"
		s.Enum = make([]any, len(n.Values))
		for i, v := range n.Values {
			s.Enum[i] = v
		}
	case Array:
		s.Type = "array"
		s.Items = JSONSchema(n.Items)
	case Map:
		s.Type = "object"
		s.AdditionalProperties = JSONSchema(n.Items)
	case Object:
		s.Type = "object"
		s.Properties = make(map[string]*jsonschema.Schema, len(n.Properties))
		for i := range n.Properties {
			p := &n.Properties[i]
			s.Properties[p.Name] = JSONSchema(&p.Node)
			if !p.Optional {
				s.Required = append(s.Required, p.Name)
			}
		}
	}
	return s
}

// MarshalJSONSchema returns the JSON Schema document for a node as bytes
func MarshalJSONSchema(n *Node) ([]byte, error) {
	return json.Marshal(JSONSchema(n))
}
