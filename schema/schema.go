package schema

import (
	"errors"
	"fmt"
)

// Kind tags a schema node. The set is closed: a Node is interpreted by
// exactly one branch of the validator per kind.
type Kind string

const (
	String  Kind = "string"
	Number  Kind = "number"
	Boolean Kind = "boolean"
	Enum    Kind = "enum"
	Array   Kind = "array"
	Map     Kind = "map"
	Object  Kind = "object"
)

// Node describes the allowed shape of a value. Values is only used by Enum,
// Items by Array and Map (the element/value type), Properties by Object.
type Node struct {
	Type        Kind       `yaml:"type" json:"type"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Values      []string   `yaml:"enum,omitempty" json:"enum,omitempty"`
	Items       *Node      `yaml:"items,omitempty" json:"items,omitempty"`
	Properties  []Property `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Property is a named field of an Object node. Fields are required unless
// marked optional.
type Property struct {
	Name     string `yaml:"name" json:"name"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	Node     `yaml:",inline"`
}

var (
	ErrUnknownKind    = errors.New("unknown schema kind")
	ErrEmptyEnum      = errors.New("enum has no values")
	ErrMissingItems   = errors.New("element schema is required")
	ErrUnnamedField   = errors.New("object field has no name")
	ErrDuplicateField = errors.New("duplicate object field")
)

func StringOf(desc string) *Node {
	return &Node{Type: String, Description: desc}
}

func NumberOf(desc string) *Node {
	return &Node{Type: Number, Description: desc}
}

func BooleanOf(desc string) *Node {
	return &Node{Type: Boolean, Description: desc}
}

func EnumOf(desc string, values ...string) *Node {
	return &Node{Type: Enum, Description: desc, Values: values}
}

func ArrayOf(items *Node) *Node {
	return &Node{Type: Array, Items: items}
}

func MapOf(values *Node) *Node {
	return &Node{Type: Map, Items: values}
}

func ObjectOf(props ...Property) *Node {
	return &Node{Type: Object, Properties: props}
}

// Required names a required field with the given shape
func Required(name string, n *Node) Property {
	return Property{Name: name, Node: *n}
}

// Optional names a field that may be absent
func Optional(name string, n *Node) Property {
	return Property{Name: name, Optional: true, Node: *n}
}

// Check verifies that the descriptor itself is well formed
func (n *Node) Check() error {
	return n.check("")
}

func (n *Node) check(path string) error {
	switch n.Type {
	case String, Number, Boolean:
		return nil
	case Enum:
		if len(n.Values) == 0 {
			return fmt.Errorf("%s: %w", pathName(path), ErrEmptyEnum)
		}
		return nil
	case Array, Map:
		if n.Items == nil {
			return fmt.Errorf("%s: %s %w", pathName(path), n.Type, ErrMissingItems)
		}
		return n.Items.check(path + "[]")
	case Object:
		seen := make(map[string]bool, len(n.Properties))
		for i := range n.Properties {
			p := &n.Properties[i]
			if p.Name == "" {
				return fmt.Errorf("%s: %w", pathName(path), ErrUnnamedField)
			}
			if seen[p.Name] {
				return fmt.Errorf("%s: %w: %s",
					pathName(path), ErrDuplicateField, p.Name,
				)
			}
			seen[p.Name] = true
			if err := p.Node.check(fieldPath(path, p.Name)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%s: %w: %q", pathName(path), ErrUnknownKind, n.Type)
	}
}

// Field returns the named property of an Object node
func (n *Node) Field(name string) (*Property, bool) {
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			return &n.Properties[i], true
		}
	}
	return nil, false
}

// IsRequired reports whether the named top-level field must be present
func (n *Node) IsRequired(name string) bool {
	p, ok := n.Field(name)
	return ok && !p.Optional
}

// String renders the shape of a node the way ValidationError reports it,
// e.g. "array<object>" or "enum(high|low)"
func (n *Node) String() string {
	switch n.Type {
	case Enum:
		s := "enum("
		for i, v := range n.Values {
			if i > 0 {
				s += "|"
			}
			s += v
		}
		return s + ")"
	case Array, Map:
		if n.Items == nil {
			return string(n.Type)
		}
		return fmt.Sprintf("%s<%s>", n.Type, n.Items.String())
	default:
		return string(n.Type)
	}
}
